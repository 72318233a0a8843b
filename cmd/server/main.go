package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/persistence"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/infrastructure/supplier"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/catalogsync/backend/internal/interfaces/http/handler"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/catalogsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	version            = "1.0.0"
	meterName          = "catalogsync"
	slowQueryThreshold = 200 * time.Millisecond
	shutdownTimeout    = 30 * time.Second
)

//	@title			Catalog Sync API
//	@version		1.0
//	@description	Supplier catalog synchronization: imports, stock, orders and change notifications

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting catalog sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(meterName)
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	// Database
	db, poolObserver := openDatabase(cfg, meter, log)
	repos := persistence.NewRepositories(db.DB)

	// Supplier gateway
	gateway := newGateway(cfg, repos.Tokens, log)

	// Claim store and catalog cache
	cacheFactory := cache.NewFactory(cfg.Redis, cfg.Cache, cache.WithLogger(log))
	claims, err := cacheFactory.NewClaimStore()
	if err != nil {
		log.Fatal("Failed to initialize claim store", zap.Error(err))
	}
	catalogCache, err := cacheFactory.NewCatalogCache()
	if err != nil {
		log.Fatal("Failed to initialize catalog cache", zap.Error(err))
	}
	catalogCache.Start()

	// Sync engine
	settings := syncSettings(cfg, gateway.Tier())
	resolver := catalogsync.NewIdentityResolver(repos.Products, repos.Variants, settings, log.Named("resolver"))
	materializer := catalogsync.NewMaterializer(catalogsync.MaterializerDeps{
		Resolver: resolver,
		Products: repos.Products,
		Entries:  repos.Entries,
		Mappings: repos.Mappings,
		Unmapped: repos.Unmapped,
		Cache:    catalogCache,
	}, settings, log.Named("materializer"))
	dispatcher := catalogsync.NewDispatcher(catalogsync.DispatcherDeps{
		Resolver:     resolver,
		Materializer: materializer,
		Products:     repos.Products,
		Variants:     repos.Variants,
		Entries:      repos.Entries,
		Mappings:     repos.Mappings,
		Notices:      repos.Notices,
		Logs:         repos.Logs,
		Orders:       repos.Orders,
		Sourcing:     repos.Sourcing,
		Claims:       claims,
		Stock:        gateway,
		Cache:        catalogCache,
	}, settings, log.Named("dispatcher"))
	importer := catalogsync.NewImporter(catalogsync.ImporterDeps{
		Source:   gateway,
		Resolver: resolver,
		Entries:  repos.Entries,
		Mappings: repos.Mappings,
		Unmapped: repos.Unmapped,
		Cache:    catalogCache,
	}, settings, log.Named("importer"))
	stockResyncer := catalogsync.NewStockResyncer(gateway, repos.Products, repos.Variants, catalogCache, settings, log.Named("stock"))
	reconciler := catalogsync.NewSourcingReconciler(gateway, repos.Sourcing, repos.Products, settings, log.Named("sourcing"))
	orders := catalogsync.NewOrderService(gateway, repos.Orders, settings, log.Named("orders"))
	reader := catalogsync.NewCatalogReader(gateway, catalogCache, log.Named("catalog"))

	syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:      meter,
		Logger:     log,
		InFlight:   dispatcher.InFlight,
		CacheStats: catalogCache.Stats,
	})
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}
	dispatcher.SetMetrics(syncMetrics)
	importer.SetMetrics(syncMetrics)
	materializer.SetMetrics(syncMetrics)
	reconciler.SetMetrics(syncMetrics)
	stockResyncer.SetMetrics(syncMetrics)

	// Background jobs
	sched := newScheduler(cfg, reconciler, materializer, log)
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	} else {
		log.Info("Scheduler disabled")
	}

	// HTTP
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, sqlDB, dispatcher.InFlight)
	engine, err := router.NewEngine(router.EngineConfig{
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Swagger: middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		},
		Meter:  meter,
		Logger: log,
	}, router.Routes{
		Webhook: handler.NewWebhookHandler(dispatcher, cfg.HTTP.MaxBodySize, log.Named("webhook")),
		Admin: []router.RouteRegistrar{
			handler.NewSyncHandler(materializer, settings.SupplierID, log.Named("sync")),
			handler.NewSupplierHandler(reader, importer, stockResyncer, gateway, log.Named("supplier")),
			handler.NewCacheHandler(catalogCache),
			handler.NewSourcingHandler(reconciler),
			handler.NewNotificationHandler(dispatcher, repos.Notices),
			handler.NewOrderHandler(orders),
			handler.NewSchedulerHandler(sched),
			systemHandler,
		},
		Health: systemHandler.Health,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Notification tasks outlive the request that acknowledged them
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn("Notification tasks still running at shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler stop failed", zap.Error(err))
		}
	}
	if err := catalogCache.Close(); err != nil {
		log.Warn("Catalog cache close failed", zap.Error(err))
	}
	if err := cacheFactory.Close(); err != nil {
		log.Warn("Redis client close failed", zap.Error(err))
	}
	if err := syncMetrics.Close(); err != nil {
		log.Warn("Sync metrics close failed", zap.Error(err))
	}
	if poolObserver != nil {
		_ = poolObserver.Unregister()
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Warn("Database close failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}
}

// openDatabase connects to PostgreSQL, routing GORM logs through zap and,
// when enabled, recording query spans and metrics
func openDatabase(cfg *config.Config, meter metric.Meter, log *zap.Logger) (*persistence.Database, metric.Registration) {
	var opts []persistence.Option
	if cfg.Telemetry.DBTraceEnabled {
		dbMetrics, err := telemetry.NewDBMetrics(meter)
		if err != nil {
			log.Fatal("Failed to initialize database metrics", zap.Error(err))
		}
		opts = append(opts, persistence.WithPlugins(telemetry.NewDBPlugin(telemetry.DefaultDBConfig(), dbMetrics, log)))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level), slowQueryThreshold, opts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	reg, err := observePool(db.DB, meter)
	if err != nil {
		log.Warn("Connection pool metrics unavailable", zap.Error(err))
	}
	return db, reg
}

func observePool(db *gorm.DB, meter metric.Meter) (metric.Registration, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return telemetry.ObservePool(meter, sqlDB)
}

// newGateway returns the supplier client, or a gateway that refuses every
// call when no credentials are configured
func newGateway(cfg *config.Config, tokens integration.TokenRepository, log *zap.Logger) integration.SupplierGateway {
	if !cfg.Supplier.IsConfigured() {
		log.Warn("Supplier credentials not configured, upstream calls are disabled")
		return supplier.NewDisabled(cfg.Supplier.ID)
	}
	client, err := supplier.NewClient(supplier.Config{
		SupplierID:         cfg.Supplier.ID,
		BaseURL:            cfg.Supplier.BaseURL,
		Email:              cfg.Supplier.Email,
		APIKey:             cfg.Supplier.APIKey,
		Tier:               integration.ParseTier(cfg.Supplier.Tier),
		Timeout:            cfg.Supplier.Timeout,
		TokenSkew:          cfg.Supplier.TokenSkew,
		StockRetryAttempts: cfg.Sync.StockRetryAttempts,
		StockRetryStep:     cfg.Sync.StockRetryStep,
	}, tokens, supplier.WithLogger(log.Named("supplier")))
	if err != nil {
		log.Fatal("Failed to initialize supplier client", zap.Error(err))
	}
	log.Info("Supplier client ready",
		zap.String("supplier", client.SupplierID()),
		zap.String("tier", string(client.Tier())),
	)
	return client
}

// syncSettings maps configuration onto the engine tunables; zero values keep defaults
func syncSettings(cfg *config.Config, tier integration.Tier) catalogsync.Settings {
	s := catalogsync.DefaultSettings()
	if cfg.Supplier.ID != "" {
		s.SupplierID = cfg.Supplier.ID
	}
	if cfg.Sync.DefaultMargin > 0 {
		s.Margin = decimal.NewFromFloat(cfg.Sync.DefaultMargin)
	}
	if cfg.Sync.SimilarityThreshold > 0 {
		s.SimilarityThreshold = cfg.Sync.SimilarityThreshold
	}
	if cfg.Sync.PriceTolerance > 0 {
		s.PriceTolerance = decimal.NewFromFloat(cfg.Sync.PriceTolerance)
	}
	if cfg.Sync.FastAckTimeout > 0 {
		s.FastAckTimeout = cfg.Sync.FastAckTimeout
	}
	if cfg.Sync.ClaimTTL > 0 {
		s.ClaimTTL = cfg.Sync.ClaimTTL
	}
	s.BatchDelay = tier.BatchDelay()
	return s
}

// newScheduler registers the periodic jobs. The scheduler is always built so
// manual triggers report a clear error when it is not running.
func newScheduler(cfg *config.Config, reconciler *catalogsync.SourcingReconciler, materializer *catalogsync.Materializer, log *zap.Logger) *scheduler.Scheduler {
	schedCfg := scheduler.DefaultConfig()
	if cfg.Scheduler.JobTimeout > 0 {
		schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	sched, err := scheduler.New(schedCfg, log)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	jobs := catalogsync.Jobs(reconciler, materializer, catalogsync.JobIntervals{
		SourcingReconcile: cfg.Scheduler.SourcingInterval,
		MappingSync:       cfg.Scheduler.MappingSyncInterval,
	})
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			log.Fatal("Failed to register job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	return sched
}
