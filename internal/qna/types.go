package qna

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NotAvailable replaces a question or answer the model left out.
const NotAvailable = "N/A"

// ReasoningStages is the number of reasoning steps every item must carry:
// observation, interpretation, conclusion.
const ReasoningStages = 3

// ChartSeries is one series of a mixed chart. All series of a request share
// the same Category axis.
type ChartSeries struct {
	ChartType    string     `json:"chart_type"`
	ChartSubtype string     `json:"chart_subtype"`
	Title        string     `json:"title"`
	Legend       []string   `json:"legend"`
	Unit         string     `json:"unit"`
	Category     []string   `json:"category"`
	DataLabel    [][]string `json:"data_label"`
}

// QAItem is one generated question/reasoning/answer unit. Labels are kept
// verbatim as the model wrote them; Kind and Subtype interpret them.
type QAItem struct {
	QAID             int      `json:"qa_id"`
	Question         string   `json:"question"`
	ReasoningType    string   `json:"reasoning_type"`
	ReasoningSubtype string   `json:"reasoning_subtype"`
	Reasoning        []string `json:"reasoning"`
	Answer           string   `json:"answer"`
}

// UnmarshalJSON is lenient: missing question/answer become NotAvailable, a
// string reasoning becomes a single step and qa_id may be a numeric string.
func (q *QAItem) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("qa item must be an object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("qa item must be an object, got null")
	}

	*q = QAItem{
		Question: NotAvailable,
		Answer:   NotAvailable,
	}
	if v, ok := raw["qa_id"]; ok {
		id, err := parseID(v)
		if err != nil {
			return err
		}
		q.QAID = id
	}
	if s, ok := stringField(raw["question"]); ok {
		q.Question = s
	}
	if s, ok := stringField(raw["answer"]); ok {
		q.Answer = s
	}
	q.ReasoningType, _ = stringField(raw["reasoning_type"])
	q.ReasoningSubtype, _ = stringField(raw["reasoning_subtype"])
	q.Reasoning = reasoningField(raw["reasoning"])
	return nil
}

func parseID(v json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		if id, err := strconv.Atoi(n.String()); err == nil {
			return id, nil
		}
		if f, err := n.Float64(); err == nil && f == float64(int(f)) {
			return int(f), nil
		}
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if id, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return id, nil
		}
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return 0, nil
	}
	return 0, fmt.Errorf("qa_id must be an integer, got %s", string(v))
}

// stringField reads a string value; other non-null scalars are kept as their
// JSON text.
func stringField(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	return string(v), true
}

func reasoningField(v json.RawMessage) []string {
	var steps []json.RawMessage
	if err := json.Unmarshal(v, &steps); err == nil {
		out := make([]string, 0, len(steps))
		for _, step := range steps {
			if s, ok := stringField(step); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := stringField(v); ok && strings.TrimSpace(s) != "" {
		return []string{s}
	}
	return []string{}
}

// Kind interprets ReasoningType.
func (q QAItem) Kind() (ReasoningType, bool) {
	return ParseReasoningType(q.ReasoningType)
}

// Subtype interprets ReasoningSubtype relative to the item's kind.
func (q QAItem) Subtype() (Subtype, bool) {
	kind, ok := q.Kind()
	if !ok {
		return Subtype{}, false
	}
	return ParseSubtype(kind, q.ReasoningSubtype)
}

// Validate reports structural problems with a single item.
func (q QAItem) Validate() []string {
	var issues []string
	prefix := fmt.Sprintf("qa_id %d", q.QAID)
	if strings.TrimSpace(q.Question) == "" || q.Question == NotAvailable {
		issues = append(issues, prefix+": missing question")
	}
	if strings.TrimSpace(q.Answer) == "" || q.Answer == NotAvailable {
		issues = append(issues, prefix+": missing answer")
	}
	kind, ok := q.Kind()
	if !ok {
		issues = append(issues, fmt.Sprintf("%s: unknown reasoning_type %q", prefix, q.ReasoningType))
	} else if _, ok := ParseSubtype(kind, q.ReasoningSubtype); !ok {
		issues = append(issues, fmt.Sprintf("%s: reasoning_subtype %q is not a %s subtype", prefix, q.ReasoningSubtype, kind))
	}
	if len(q.Reasoning) != ReasoningStages {
		issues = append(issues, fmt.Sprintf("%s: reasoning has %d steps, want %d", prefix, len(q.Reasoning), ReasoningStages))
	}
	return issues
}

// Batch contract the prompt asks the model for.
const (
	BatchSize       = 3
	BatchLogical    = 2
	BatchArithmetic = 1
)

// CheckBatch validates every item and the batch composition. It never fails;
// problems come back as human-readable warnings.
func CheckBatch(items []QAItem) []string {
	var warnings []string
	if len(items) != BatchSize {
		warnings = append(warnings, fmt.Sprintf("batch has %d items, want %d", len(items), BatchSize))
	}

	var logical, arithmetic int
	ids := map[int]bool{}
	subtypes := map[string]bool{}
	for _, it := range items {
		warnings = append(warnings, it.Validate()...)

		if it.QAID < 1 {
			warnings = append(warnings, fmt.Sprintf("qa_id %d is not a 1-based id", it.QAID))
		} else if ids[it.QAID] {
			warnings = append(warnings, fmt.Sprintf("qa_id %d is duplicated", it.QAID))
		}
		ids[it.QAID] = true

		switch kind, _ := it.Kind(); kind {
		case Logical:
			logical++
		case Arithmetic:
			arithmetic++
		}
		if st, ok := it.Subtype(); ok {
			if subtypes[st.Code] {
				warnings = append(warnings, fmt.Sprintf("reasoning_subtype %q is used more than once", st.Code))
			}
			subtypes[st.Code] = true
		}
	}
	if len(items) > 0 && (logical != BatchLogical || arithmetic != BatchArithmetic) {
		warnings = append(warnings, fmt.Sprintf("batch has %d LOGICAL and %d ARITHMETIC items, want %d and %d", logical, arithmetic, BatchLogical, BatchArithmetic))
	}
	return warnings
}
