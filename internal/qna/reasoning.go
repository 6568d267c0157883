package qna

import (
	"strings"
)

type ReasoningType string

const (
	Logical    ReasoningType = "LOGICAL"
	Arithmetic ReasoningType = "ARITHMETIC"
)

// Label is the Korean label the default prompt asks the model to emit.
func (t ReasoningType) Label() string {
	switch t {
	case Logical:
		return "논리추론"
	case Arithmetic:
		return "연산추론"
	default:
		return ""
	}
}

// ParseReasoningType accepts the English enum or the Korean label, ignoring
// case and whitespace.
func ParseReasoningType(s string) (ReasoningType, bool) {
	switch normalizeLabel(s) {
	case "logical", "논리추론":
		return Logical, true
	case "arithmetic", "연산추론":
		return Arithmetic, true
	default:
		return "", false
	}
}

type Subtype struct {
	Type  ReasoningType `json:"type"`
	Code  string        `json:"code"`
	Label string        `json:"label"`
}

var subtypes = []Subtype{
	{Logical, "comparison", "비교"},
	{Logical, "correlation", "상관/관계"},
	{Logical, "induction", "귀납/패턴"},
	{Logical, "exception", "예외/특이점"},
	{Logical, "filtering", "필터링/조건선별"},

	{Arithmetic, "increase", "증가량"},
	{Arithmetic, "decrease", "감소량"},
	{Arithmetic, "sum", "합계"},
	{Arithmetic, "average", "평균"},
	{Arithmetic, "growth_rate", "증가율/증감률"},
	{Arithmetic, "multiple", "배수"},
	{Arithmetic, "difference", "차이"},
	{Arithmetic, "proportion", "비중"},
}

// Subtypes lists the subtypes of t in prompt order.
func Subtypes(t ReasoningType) []Subtype {
	var out []Subtype
	for _, st := range subtypes {
		if st.Type == t {
			out = append(out, st)
		}
	}
	return out
}

// ParseSubtype matches s against the codes and labels of t's subtypes. Either
// half of a compound label ("상관" for "상관/관계") matches, and a
// parenthesised qualifier such as "비중(최댓값/최솟값)" is ignored.
func ParseSubtype(t ReasoningType, s string) (Subtype, bool) {
	want := normalizeLabel(stripQualifier(s))
	if want == "" {
		return Subtype{}, false
	}
	for _, st := range subtypes {
		if st.Type != t {
			continue
		}
		if want == st.Code || want == normalizeLabel(st.Label) {
			return st, true
		}
		for _, part := range strings.Split(st.Label, "/") {
			if want == normalizeLabel(part) {
				return st, true
			}
		}
	}
	return Subtype{}, false
}

func stripQualifier(s string) string {
	if i := strings.IndexAny(s, "(（"); i > 0 {
		return s[:i]
	}
	return s
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	return strings.ReplaceAll(s, "-", "_")
}
