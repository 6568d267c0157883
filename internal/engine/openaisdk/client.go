package openaisdk

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/engine"
)

// Engine calls chat completions through the official SDK. SDK-level retries
// are disabled; a retry policy belongs outside the generator.
type Engine struct {
	client openai.Client
}

func New(cfg config.EngineConfig) (*Engine, error) {
	return NewWithHTTPClient(cfg, nil)
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg config.EngineConfig, httpClient *http.Client) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openai_sdk: base_url required")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL + "/v1/"),
		option.WithMaxRetries(0),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if cfg.Timeout.Duration > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout.Duration))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Engine{client: openai.NewClient(opts...)}, nil
}

func (e *Engine) Complete(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (engine.Completion, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case "user":
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	if len(msgs) == 0 {
		return engine.Completion{}, errors.New("no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return engine.Completion{}, err
	}

	var text string
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			text = c.Message.Content
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return engine.Completion{}, errors.New("empty upstream completion")
	}

	usage := engine.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return engine.Completion{Text: text, Usage: usage}, nil
}
