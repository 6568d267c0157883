package qna

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Placeholder marks where the serialised chart data is inserted.
const Placeholder = "{chart_json}"

// CheckTemplate reports a template without the chart placeholder.
func CheckTemplate(template string) error {
	if !strings.Contains(template, Placeholder) {
		return newError(KindTemplate, "template", "prompt template must contain the %s placeholder", Placeholder)
	}
	return nil
}

// ParseChartData parses the user's chart data. The orchestrator does not
// interpret the value beyond requiring well-formed JSON.
func ParseChartData(chartData string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(chartData))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newError(KindInput, "chart_data", "input chart data invalid: empty input")
		}
		return nil, newError(KindInput, "chart_data", "input chart data invalid: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newError(KindInput, "chart_data", "input chart data invalid: unexpected data after offset %d", dec.InputOffset())
	}
	return v, nil
}

// CanonicalChartJSON renders parsed chart data with sorted keys, two-space
// indentation and non-ASCII text left as is.
func CanonicalChartJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// RenderPrompt substitutes chart data into template. Every occurrence of the
// placeholder is replaced; nothing else in the template is interpreted.
func RenderPrompt(template, chartData string) (string, error) {
	v, err := ParseChartData(chartData)
	if err != nil {
		return "", err
	}
	if err := CheckTemplate(template); err != nil {
		return "", err
	}
	chartJSON, err := CanonicalChartJSON(v)
	if err != nil {
		return "", newError(KindInput, "chart_data", "input chart data invalid: %v", err)
	}
	return strings.ReplaceAll(template, Placeholder, chartJSON), nil
}

// LoadTemplate reads a prompt template from path, falling back to
// DefaultTemplate when path is empty.
func LoadTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTemplate, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	tmpl := string(b)
	if err := CheckTemplate(tmpl); err != nil {
		return "", fmt.Errorf("prompt template %s: %w", path, err)
	}
	return tmpl, nil
}

// ExampleChartData is a two-series mixed chart (bar amounts plus a ratio line)
// used as the default input.
const ExampleChartData = `[
  {
    "chart_type": "혼합형",
    "chart_subtype": "막대형+선형",
    "title": "발주시기별 예산 현황",
    "legend": ["발주금액"],
    "unit": "억원",
    "category": ["1분기", "2분기", "3분기", "4분기"],
    "data_label": [["2,071.1", "1,692.8", "696.7", "575.9"]]
  },
  {
    "chart_type": "혼합형",
    "chart_subtype": "막대형+선형",
    "title": "발주시기별 예산 현황",
    "legend": ["예산비율"],
    "unit": "%",
    "category": ["1분기", "2분기", "3분기", "4분기"],
    "data_label": [["41.1", "33.6", "13.8", "11.4"]]
  }
]`

// DefaultTemplate asks for three question/reasoning/answer sets (two logical,
// one arithmetic) over a mixed chart and fixes the output schema.
const DefaultTemplate = `역할:
당신은 데이터 분석 전문가로서, 입력으로 주어지는 혼합형 차트(막대+선형 등 복수 지표)의 수치를 근거로 정량적 인사이트를 도출하는 질문-추론-답변 세트 3개를 작성합니다.

[출력 조건]
1. 출력은 반드시 질문 / reasoning 3단계 / 답변 구조로 구성
2. 질문은 정확히 3개만 생성하며, 각 질문은 서로 다른 reasoning_subtype을 사용
3. 논리추론 2개 + 연산추론 1개 구성 (논리추론 우선, 연산추론은 보충 용도)
4. 하나의 질문에는 하나의 답변 포인트만 포함 (복합질문 금지)
5. 모든 수치는 반드시 차트 내 실제 값으로 검증 가능해야 함
6. 외부 지식, 추측, 감정적 단어 사용 금지 (일반 상식은 허용)
7. 문장은 완전한 서술형으로 작성

[혼합형 차트 데이터 구조]
입력 데이터는 배열 형식으로 제공되며, 각 요소는 하나의 지표를 나타냅니다.
- 동일한 category(X축)를 공유
- 각 요소는 서로 다른 legend(지표명)와 unit(단위)를 가짐
- 첫 번째 요소는 주로 막대 차트 (절댓값), 두 번째는 선형 차트 (비율/추세)

[질문 유형 중 3개 선택]
1. 변화 속도형 - 변화 폭, 비율, 속도 등 비교
2. 단위당 영향형 - 한 지표 변화가 다른 지표에 미치는 영향
3. 괴리·전환형 - 두 지표 간 전환 시점 분석
4. 주기·패턴형 - 변동 주기, 집중도, 반복 패턴 분석

[reasoning 작성 규칙]
모든 유형은 아래 3단계 구조를 따릅니다:

1단계(관찰): 차트의 실제 수치를 명시하고, 증감 폭·비율을 정량적으로 기술한다.
2단계(해석): 수치 간 관계나 속도를 계산하고 의미를 도출한다.
3단계(결론): 분석 결과를 정리해 한 문장으로 요약한다.

※ reasoning 배열의 각 요소는 단계별 내용만 작성 (번호나 라벨 불필요)

[reasoning_type 및 subtype 정의]
reasoning_type: "논리추론" 또는 "연산추론" (띄어쓰기 없음)

논리추론 subtypes:
  - 비교, 상관/관계, 귀납/패턴, 예외/특이점, 필터링/조건선별

연산추론 subtypes:
  - 증가량, 감소량, 합계, 평균, 증가율/증감률, 배수, 차이, 비중

[질문 유형별 reasoning 기준]

논리추론 reasoning 단계:
- 비교: 비교 대상 명시 → 값의 우열/차이 판별 → 차트 내 특징/패턴 언급
- 상관/관계: 비교 변수 명시 → 동반 변화/방향 판별 → 관계 유형 서술
- 귀납/패턴: 전체 변화 흐름 포착 → 주요 구간/항목 특징 → 주요 패턴 요약
- 예외/특이점: 특이값/예외 확인 → 예외 위치/특징 구체화 → 차트 맥락 내 의미
- 필터링/조건선별: 선별 기준 명시 → 조건 충족 항목 제시 → 분포/특징 요약

연산추론 필수 포함 수식:
- 증가량: 나중 값 − 기준 값
- 감소량: 기준 값 − 나중 값
- 합계: 값₁ + 값₂ + ... + 값ₙ
- 평균: (값₁ + ... + 값ₙ) ÷ n
- 증가율/증감률: (증가량 ÷ 기준 값) × 100
- 배수: 비교 값 ÷ 기준 값
- 차이: 큰 값 − 작은 값
- 비중(최댓값/최솟값): max(값₁, ...)/min(값₁, ...)

출력 형식:
{
  "qa_reasoning": [
    {
      "qa_id": 1,
      "question": "질문",
      "reasoning_type": "논리추론",
      "reasoning_subtype": "비교",
      "reasoning": ["관찰", "해석", "결론"],
      "answer": "답변"
    }
  ]
}

꼭 지킬 점:
- 두 지표 간 관계를 반드시 분석 (단일 지표만 분석 금지)
- 각 지표의 legend와 unit을 정확히 구분하여 사용
- 하나의 질문에는 하나의 질문 요소만 포함
- reasoning은 정확히 3단계로 구성 (번호나 라벨 없이 내용만 작성)
- reasoning_type은 "논리추론", "연산추론" (띄어쓰기 없음)
- 모든 계산은 차트 데이터에서 직접 확인 가능해야 함
- JSON 형식을 정확히 준수

차트 데이터:
{chart_json}
`
