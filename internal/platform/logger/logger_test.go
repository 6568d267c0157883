package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"api_key", "sk-live",
		"Authorization", "Bearer x",
		"prompt_tokens", 1843,
		"model", "gpt-4.1",
		"empty_secret", "",
		"dangling",
	})
	assert.Equal(t, []interface{}{
		"api_key", "[REDACTED]",
		"Authorization", "[REDACTED]",
		"prompt_tokens", 1843,
		"model", "gpt-4.1",
		"empty_secret", "",
		"dangling",
	}, got)
}

func TestLoggerRedactsThroughWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("api_key", "sk-live").Info("generate", "completion_tokens", 10)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.EqualValues(t, 10, fields["completion_tokens"])
}

func TestNew(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l, err := New("production")
	require.NoError(t, err)
	assert.NotNil(t, l.SugaredLogger)

	t.Setenv("LOG_LEVEL", "loud")
	_, err = New("development")
	assert.Error(t, err)
}
