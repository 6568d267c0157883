package mock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/chartqna/internal/engine"
	"github.com/yungbote/chartqna/internal/sanitize"
)

func TestComplete_CannedResponseNeedsRepair(t *testing.T) {
	e := New()
	out, err := e.Complete(context.Background(), "mock-1", []engine.Message{{Role: "user", Content: "12345678"}}, engine.GenerateOptions{Temperature: 0.3})
	require.NoError(t, err)

	assert.False(t, json.Valid([]byte(out.Text)))
	clean, err := sanitize.Sanitize(out.Text)
	require.NoError(t, err)

	var v struct {
		QAReasoning []map[string]any `json:"qa_reasoning"`
	}
	require.NoError(t, json.Unmarshal([]byte(clean), &v))
	assert.Len(t, v.QAReasoning, 3)

	assert.Equal(t, 2, out.Usage.PromptTokens)
	assert.Equal(t, out.Usage.PromptTokens+out.Usage.CompletionTokens, out.Usage.TotalTokens)

	calls := e.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "mock-1", calls[0].Model)
	assert.Equal(t, 0.3, calls[0].Options.Temperature)
}

func TestComplete_ReplyAndErr(t *testing.T) {
	e := &Engine{Reply: "[]"}
	out, err := e.Complete(context.Background(), "m", nil, engine.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out.Text)

	boom := errors.New("boom")
	e = &Engine{Err: boom}
	_, err = e.Complete(context.Background(), "m", nil, engine.GenerateOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestComplete_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Complete(ctx, "m", nil, engine.GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
