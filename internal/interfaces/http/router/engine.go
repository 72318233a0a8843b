package router

import (
	"fmt"

	_ "github.com/catalogsync/backend/docs"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the gin engine and its middleware chain
type EngineConfig struct {
	APIVersion       string
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	Tracing          middleware.TracingConfig
	Swagger          middleware.SwaggerConfig
	Meter            metric.Meter
	Logger           *zap.Logger
}

// Routes groups the registrars mounted on the engine
type Routes struct {
	// Webhook routes take no body limit: the push endpoint must always
	// answer 200, so it caps the body itself.
	Webhook RouteRegistrar
	// Admin routes are guarded by the body limit.
	Admin []RouteRegistrar
	// Health is mounted at /health outside the versioned prefix
	Health gin.HandlerFunc
}

// NewEngine builds the gin engine with the full middleware chain and mounts routes.
// Chain order: recovery, request id, access log, tracing, metrics, CORS.
func NewEngine(cfg EngineConfig, routes Routes) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.Tracing),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.CORS(cfg.CORSAllowOrigins),
	)
	middleware.SetupValidator()

	if routes.Health != nil {
		engine.GET("/health", routes.Health)
	}
	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger), ginSwagger.WrapHandler(swaggerFiles.Handler))

	opts := []RouterOption{}
	if cfg.APIVersion != "" {
		opts = append(opts, WithAPIVersion(cfg.APIVersion))
	}
	r := NewRouter(engine, opts...)
	if routes.Webhook != nil {
		r.Register(routes.Webhook)
	}
	var guards []gin.HandlerFunc
	if cfg.MaxBodySize > 0 {
		guards = append(guards, middleware.BodyLimit(cfg.MaxBodySize))
	}
	for _, reg := range routes.Admin {
		r.Register(reg, guards...)
	}
	r.Setup()

	log.Info("HTTP routes registered",
		zap.String("base_path", r.BasePath()),
		zap.Int("routes", len(engine.Routes())),
	)
	return engine, nil
}
