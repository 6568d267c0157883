package pricing

import (
	"fmt"
	"sort"
	"strings"
)

const perMillion = 1_000_000

// Rate is the USD cost of a single input or output token.
type Rate struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// PerMillion builds a Rate from the per-million-token prices providers publish.
func PerMillion(input, output float64) Rate {
	return Rate{Input: input / perMillion, Output: output / perMillion}
}

func (r Rate) InputPerMillion() float64  { return r.Input * perMillion }
func (r Rate) OutputPerMillion() float64 { return r.Output * perMillion }

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Usage is the immutable usage record attached to a successful generation.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	TotalCost        float64 `json:"total_cost"`
}

// Compute prices a token count. Negative counts are treated as zero and a
// missing total is derived from its parts.
func Compute(u TokenUsage, r Rate) Usage {
	prompt := nonNegative(u.PromptTokens)
	completion := nonNegative(u.CompletionTokens)
	total := nonNegative(u.TotalTokens)
	if total == 0 {
		total = prompt + completion
	}

	in := float64(prompt) * r.Input
	out := float64(completion) * r.Output
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
		InputCost:        in,
		OutputCost:       out,
		TotalCost:        in + out,
	}
}

// Summary renders the usage the way the generation report shows it.
func (u Usage) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "input:  %s tokens ($%.6f)\n", groupThousands(u.PromptTokens), u.InputCost)
	fmt.Fprintf(&b, "output: %s tokens ($%.6f)\n", groupThousands(u.CompletionTokens), u.OutputCost)
	fmt.Fprintf(&b, "total:  %s tokens ($%.6f)", groupThousands(u.TotalTokens), u.TotalCost)
	return b.String()
}

// Table maps model identifiers to their rates.
type Table map[string]Rate

// UnknownModelError is returned by Lookup for a model without a pricing entry.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("no pricing configured for model %q", e.Model)
}

func (t Table) Lookup(model string) (Rate, error) {
	id := strings.TrimSpace(model)
	r, ok := t[id]
	if !ok {
		return Rate{}, &UnknownModelError{Model: id}
	}
	return r, nil
}

func (t Table) Models() []string {
	out := make([]string, 0, len(t))
	for id := range t {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Default is the built-in table, priced per million tokens.
func Default() Table {
	return Table{
		"gpt-4.1":       PerMillion(2.00, 8.00),
		"gpt-4o":        PerMillion(2.50, 10.00),
		"gpt-4-turbo":   PerMillion(10.00, 30.00),
		"gpt-3.5-turbo": PerMillion(0.50, 1.50),
		"mock-1":        {},
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
