package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/httpapi"
	"github.com/yungbote/chartqna/internal/platform/logger"
	"github.com/yungbote/chartqna/internal/platform/observability"
	"github.com/yungbote/chartqna/internal/qna"
	"github.com/yungbote/chartqna/internal/router"
)

// Version is stamped at build time.
var Version = "dev"

type App struct {
	Log       *logger.Logger
	Config    *config.Config
	Router    *router.Router
	Generator *qna.Generator
	Template  string

	server          *http.Server
	shutdownTracing func(context.Context) error
}

// New loads configuration from the environment and wires every component.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := NewWithConfig(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	r, err := router.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	tmpl, err := qna.LoadTemplate(cfg.PromptPath)
	if err != nil {
		return nil, err
	}

	shutdownTracing := observability.InitTracing(ctx, log,
		observability.TraceConfigFromEnv("chartqna", cfg.Env, Version))

	gen := qna.NewGenerator(r, log)
	return &App{
		Log:             log,
		Config:          cfg,
		Router:          r,
		Generator:       gen,
		Template:        tmpl,
		server:          httpapi.NewServer(cfg, log, r, gen, tmpl),
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run serves HTTP until ctx is canceled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("http server listening", "addr", a.server.Addr, "default_model", a.Config.DefaultModel, "models", a.Router.ListModels(), "priced_models", a.Router.Pricing().Models())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Log.Info("http server shutting down")
		return a.server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close flushes traces and logs.
func (a *App) Close(ctx context.Context) {
	if err := a.shutdownTracing(ctx); err != nil {
		a.Log.Warn("otel shutdown failed", "error", err)
	}
	a.Log.Sync()
}
