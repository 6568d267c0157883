package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/platform/logger"
	"github.com/yungbote/chartqna/internal/qna"
	"github.com/yungbote/chartqna/internal/router"
)

const serviceName = "chartqna"

func NewServer(cfg *config.Config, log *logger.Logger, r *router.Router, gen *qna.Generator, template string) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewHandler(cfg, log, r, gen, template),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		WriteTimeout:      0,
	}
}

func NewHandler(cfg *config.Config, log *logger.Logger, r *router.Router, gen *qna.Generator, template string) *gin.Engine {
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := &Handler{
		log:          log,
		router:       r,
		gen:          gen,
		template:     template,
		defaultModel: cfg.DefaultModel,
	}

	e := gin.New()
	e.Use(
		requestIDMiddleware(),
		accessLogMiddleware(log),
		recoverMiddleware(log),
		otelgin.Middleware(serviceName),
		corsMiddleware(cfg.HTTP.AllowOrigins),
		maxBodyMiddleware(cfg.HTTP.MaxRequestBytes),
	)

	e.GET("/healthz", h.healthz)
	e.GET("/readyz", h.readyz)

	v1 := e.Group("/v1")
	if cfg.HTTP.AuthSecret != "" {
		v1.Use(requireBearer(cfg.HTTP.AuthSecret))
	}
	v1.GET("/models", h.listModels)
	v1.GET("/prompt", h.prompt)
	v1.POST("/qna/generate", h.generate)
	v1.POST("/qna/export", h.export)

	return e
}
