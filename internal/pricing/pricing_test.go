package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Linear(t *testing.T) {
	r := PerMillion(2.00, 8.00)
	cases := []TokenUsage{
		{PromptTokens: 0, CompletionTokens: 0},
		{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
		{PromptTokens: 1843, CompletionTokens: 1207, TotalTokens: 3050},
		{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000},
	}
	for _, c := range cases {
		u := Compute(c, r)
		assert.Equal(t, float64(c.PromptTokens)*r.Input, u.InputCost)
		assert.Equal(t, float64(c.CompletionTokens)*r.Output, u.OutputCost)
		assert.Equal(t, u.InputCost+u.OutputCost, u.TotalCost)
	}
}

func TestCompute_DefaultModelExampleRate(t *testing.T) {
	rate, err := Default().Lookup("gpt-4.1")
	require.NoError(t, err)

	u := Compute(TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000}, rate)
	assert.InDelta(t, 2.00, u.InputCost, 1e-9)
	assert.InDelta(t, 8.00, u.OutputCost, 1e-9)
	assert.InDelta(t, 10.00, u.TotalCost, 1e-9)
	assert.InDelta(t, 2.00, rate.InputPerMillion(), 1e-9)
	assert.InDelta(t, 8.00, rate.OutputPerMillion(), 1e-9)
}

func TestCompute_ClampsAndDerivesTotal(t *testing.T) {
	u := Compute(TokenUsage{PromptTokens: -5, CompletionTokens: 10}, PerMillion(1, 1))
	assert.Equal(t, 0, u.PromptTokens)
	assert.Equal(t, 10, u.TotalTokens)
	assert.GreaterOrEqual(t, u.InputCost, 0.0)
}

func TestLookup_UnknownModel(t *testing.T) {
	_, err := Default().Lookup("gpt-unknown")
	require.Error(t, err)

	var ue *UnknownModelError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "gpt-unknown", ue.Model)
}

func TestLookup_MockIsExplicitlyFree(t *testing.T) {
	r, err := Default().Lookup(" mock-1 ")
	require.NoError(t, err)
	assert.Equal(t, Rate{}, r)
}

func TestUsageSummary(t *testing.T) {
	u := Compute(TokenUsage{PromptTokens: 1843, CompletionTokens: 1207, TotalTokens: 3050}, PerMillion(2, 8))
	want := "input:  1,843 tokens ($0.003686)\n" +
		"output: 1,207 tokens ($0.009656)\n" +
		"total:  3,050 tokens ($0.013342)"
	assert.Equal(t, want, u.Summary())
}

func TestGroupThousands(t *testing.T) {
	cases := map[int]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		123456:    "123,456",
		1234567:   "1,234,567",
		-12345678: "-12,345,678",
	}
	for n, want := range cases {
		assert.Equal(t, want, groupThousands(n))
	}
}

func TestModelsSorted(t *testing.T) {
	assert.Equal(t, []string{"gpt-3.5-turbo", "gpt-4-turbo", "gpt-4.1", "gpt-4o", "mock-1"}, Default().Models())
}
