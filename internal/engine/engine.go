package engine

import "context"

type Message struct {
	Role    string
	Content string
}

type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Completion struct {
	Text  string
	Usage TokenUsage
}

// Engine is a single-shot chat completion endpoint.
type Engine interface {
	Complete(ctx context.Context, model string, messages []Message, opts GenerateOptions) (Completion, error)
}
