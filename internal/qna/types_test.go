package qna

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQAItem_UnmarshalLenient(t *testing.T) {
	var it QAItem
	require.NoError(t, json.Unmarshal([]byte(`{"qa_id": 2.0, "reasoning_type": "논리추론", "reasoning": ["a", 3, null]}`), &it))
	assert.Equal(t, 2, it.QAID)
	assert.Equal(t, NotAvailable, it.Question)
	assert.Equal(t, NotAvailable, it.Answer)
	assert.Equal(t, []string{"a", "3"}, it.Reasoning)

	require.NoError(t, json.Unmarshal([]byte(`{"qa_id": " 7 ", "answer": "ok"}`), &it))
	assert.Equal(t, 7, it.QAID)
	assert.Equal(t, "ok", it.Answer)
	assert.Equal(t, []string{}, it.Reasoning)
	assert.Equal(t, "", it.ReasoningType)

	assert.Error(t, json.Unmarshal([]byte(`{"qa_id": "first"}`), &it))
	assert.Error(t, json.Unmarshal([]byte(`"just text"`), &it))
	assert.Error(t, json.Unmarshal([]byte(`null`), &it))
}

func TestParseReasoningType(t *testing.T) {
	cases := map[string]ReasoningType{
		"논리추론":       Logical,
		"논리 추론":      Logical,
		"LOGICAL":    Logical,
		"arithmetic": Arithmetic,
		"연산추론":       Arithmetic,
	}
	for in, want := range cases {
		got, ok := ParseReasoningType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseReasoningType("수리추론")
	assert.False(t, ok)
	assert.Equal(t, "연산추론", Arithmetic.Label())
}

func TestParseSubtype(t *testing.T) {
	st, ok := ParseSubtype(Logical, "상관")
	require.True(t, ok)
	assert.Equal(t, "correlation", st.Code)

	st, ok = ParseSubtype(Arithmetic, "비중(최댓값/최솟값)")
	require.True(t, ok)
	assert.Equal(t, "proportion", st.Code)

	st, ok = ParseSubtype(Arithmetic, "Growth-Rate")
	require.True(t, ok)
	assert.Equal(t, "증가율/증감률", st.Label)

	_, ok = ParseSubtype(Logical, "감소량")
	assert.False(t, ok, "arithmetic subtype under a logical item")
	_, ok = ParseSubtype(Logical, "")
	assert.False(t, ok)

	assert.Len(t, Subtypes(Logical), 5)
	assert.Len(t, Subtypes(Arithmetic), 8)
}

func TestQAItem_Validate(t *testing.T) {
	ok := QAItem{QAID: 1, Question: "q", ReasoningType: "연산추론", ReasoningSubtype: "차이", Reasoning: []string{"a", "b", "c"}, Answer: "x"}
	assert.Empty(t, ok.Validate())

	bad := QAItem{QAID: 2, Question: NotAvailable, ReasoningType: "논리추론", ReasoningSubtype: "합계", Reasoning: []string{"a"}, Answer: "x"}
	issues := bad.Validate()
	assert.Contains(t, issues, "qa_id 2: missing question")
	assert.Contains(t, issues, `qa_id 2: reasoning_subtype "합계" is not a LOGICAL subtype`)
	assert.Contains(t, issues, "qa_id 2: reasoning has 1 steps, want 3")

	unknown := QAItem{QAID: 3, Question: "q", ReasoningType: "기타", Reasoning: []string{"a", "b", "c"}, Answer: "x"}
	assert.Equal(t, []string{`qa_id 3: unknown reasoning_type "기타"`}, unknown.Validate())
}

func TestCheckBatch(t *testing.T) {
	item := func(id int, typ, sub string) QAItem {
		return QAItem{QAID: id, Question: "q", ReasoningType: typ, ReasoningSubtype: sub, Reasoning: []string{"a", "b", "c"}, Answer: "x"}
	}

	good := []QAItem{item(1, "논리추론", "비교"), item(2, "논리추론", "예외/특이점"), item(3, "연산추론", "평균")}
	assert.Empty(t, CheckBatch(good))

	bad := []QAItem{item(1, "논리추론", "비교"), item(1, "논리추론", "비교"), item(0, "논리추론", "상관/관계")}
	warnings := CheckBatch(bad)
	assert.Contains(t, warnings, "qa_id 1 is duplicated")
	assert.Contains(t, warnings, "qa_id 0 is not a 1-based id")
	assert.Contains(t, warnings, `reasoning_subtype "comparison" is used more than once`)
	assert.Contains(t, warnings, "batch has 3 LOGICAL and 0 ARITHMETIC items, want 2 and 1")

	assert.Equal(t, []string{"batch has 0 items, want 3"}, CheckBatch(nil))
}

func TestSeries(t *testing.T) {
	series, err := DecodeSeries(ExampleChartData)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "예산비율", series[1].Legend[0])
	assert.Empty(t, CheckSeries(series))

	one, err := DecodeSeries(`{"legend": ["a"], "category": ["x", "y"], "data_label": [["1"]]}`)
	require.NoError(t, err)
	warnings := CheckSeries(one)
	assert.Contains(t, warnings, "series 1 (a): data_label row 0 has 1 values for 2 categories")
	assert.Contains(t, warnings, "series 1 (a): missing unit")

	series[1].Category = []string{"1분기"}
	series[1].DataLabel = [][]string{{"41.1"}}
	assert.Contains(t, CheckSeries(series), "series 2 (예산비율): category differs from the first series")

	_, err = DecodeSeries("{not valid")
	assert.Error(t, err)
	assert.Equal(t, []string{"chart data has no series"}, CheckSeries(nil))
}
