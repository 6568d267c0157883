package app

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/platform/logger"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	cfg := &config.Config{
		Env:          "development",
		DefaultModel: "mock-1",
		HTTP: config.HTTPConfig{
			Addr:            freeAddr(t),
			ShutdownTimeout: config.Duration{Duration: 2 * time.Second},
		},
		Models: []config.ModelConfig{
			{ID: "mock-1", Engine: config.EngineConfig{Type: "mock"}, Pricing: &config.PricingConfig{}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	a, err := NewWithConfig(ctx, cfg, logger.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	url := "http://" + cfg.HTTP.Addr + "/readyz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	a.Close(context.Background())
}

func TestNewWithConfig_BadPromptPath(t *testing.T) {
	cfg := &config.Config{
		DefaultModel: "mock-1",
		PromptPath:   "/does/not/exist.txt",
		Models: []config.ModelConfig{
			{ID: "mock-1", Engine: config.EngineConfig{Type: "mock"}},
		},
	}
	_, err := NewWithConfig(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
}
