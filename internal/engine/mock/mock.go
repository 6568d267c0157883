package mock

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yungbote/chartqna/internal/engine"
)

// Engine is an offline engine. By default it answers every prompt with a
// fenced three-item response in the shape the default prompt asks for,
// including the comment and trailing-comma quirks real models produce.
type Engine struct {
	// Reply, when set, replaces the canned response.
	Reply string
	// Err, when set, is returned instead of a completion.
	Err error

	mu    sync.Mutex
	calls []Call
}

type Call struct {
	Model    string
	Messages []engine.Message
	Options  engine.GenerateOptions
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Complete(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (engine.Completion, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Model: model, Messages: append([]engine.Message(nil), messages...), Options: opts})
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return engine.Completion{}, err
	}
	if e.Err != nil {
		return engine.Completion{}, e.Err
	}

	text := e.Reply
	if text == "" {
		text = CannedResponse
	}

	var prompt int
	for _, m := range messages {
		prompt += estimateTokens(m.Content)
	}
	completion := estimateTokens(text)
	return engine.Completion{
		Text: text,
		Usage: engine.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// Calls returns a copy of every request seen so far.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// estimateTokens approximates tokenizer output at four characters per token.
func estimateTokens(s string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

const CannedResponse = "```json\n" + `{
  "qa_reasoning": [
    {
      "qa_id": 1,
      "question": "예산과 예산비율 중 어느 지표의 감소 속도가 더 급격한가?",
      "reasoning_type": "논리추론",
      "reasoning_subtype": "비교",
      "reasoning": [
        "예산은 1분기 2,071.1억 원에서 4분기 575.9억 원으로 72.2% 감소했고, 예산비율은 1분기 41.1%에서 4분기 11.4%로 72.3% 감소했다.",
        "두 지표의 감소율을 비교하면 예산비율이 72.3%로 예산의 72.2%보다 약간 더 크며, 2→3분기 구간에서 예산비율은 19.8%p 감소했다.",
        "따라서 전체적으로 예산비율의 감소 속도가 예산보다 미세하게 더 급격하다."
      ],
      "answer": "두 지표 모두 약 72% 감소하지만, 예산비율이 72.3%로 미세하게 더 급격한 감소를 보인다."
    },
    {
      "qa_id": 2,
      "question": "발주시기별 예산비율 변동 패턴은 어떤 시기에 집중되는가?",
      "reasoning_type": "논리추론",
      "reasoning_subtype": "귀납/패턴", // pattern
      "reasoning": [
        "예산비율은 1분기 41.1%, 2분기 33.6%로 상반기에만 74.7%를 차지하며, 하반기는 25.2%에 불과하다.",
        "연간 예산의 약 3분의 2 이상이 상반기 발주에 몰려 있으며, 1분기가 41.1%로 가장 높은 비중을 차지한다.",
        "이는 사업이 초기 단계에 집중되는 상반기 집행형 패턴이다."
      ],
      "answer": "전체 예산의 약 75%가 상반기에 발주되어 연초에 집중되는 패턴을 보인다."
    },
    {
      "qa_id": 3,
      "question": "1분기 대비 4분기의 발주금액 감소량은 얼마인가?",
      "reasoning_type": "연산추론",
      "reasoning_subtype": "감소량",
      "reasoning": [
        "발주금액은 1분기 2,071.1억 원, 4분기 575.9억 원이다.",
        "감소량은 기준 값 − 나중 값이므로 2,071.1 − 575.9 = 1,495.2억 원이다.",
        "따라서 1분기 대비 4분기 발주금액은 1,495.2억 원 감소했다."
      ],
      "answer": "1분기 대비 4분기 발주금액은 1,495.2억 원 감소했다.",
    },
  ]
}` + "\n```"
