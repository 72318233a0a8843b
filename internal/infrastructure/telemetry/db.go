package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation
type DBConfig struct {
	Tracing            bool
	LogFullSQL         bool // include bind variables in spans; development only
	SlowQueryThreshold time.Duration
	DBSystem           string
	// TracerProvider overrides the global provider for otelgorm spans
	TracerProvider trace.TracerProvider
}

// DefaultDBConfig returns tracing-off defaults with a 200ms slow threshold
func DefaultDBConfig() DBConfig {
	return DBConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		DBSystem:           "postgresql",
	}
}

// DBMetrics holds the query and pool instruments
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
}

// NewDBMetrics creates the query instruments
func NewDBMetrics(meter metric.Meter) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	queryTotal, err := NewCounter(meter, "db_query_total", "Database queries by operation", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}")
	if err != nil {
		return nil, err
	}
	return &DBMetrics{queryTotal: queryTotal, queryDuration: queryDuration, slowQueryTotal: slowQueryTotal}, nil
}

// ObservePool registers pool gauges read from sqlDB on every collection
func ObservePool(meter metric.Meter, sqlDB *sql.DB) (metric.Registration, error) {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, conns, maxConns)
}

func (m *DBMetrics) record(ctx context.Context, operation, table string, elapsed, slow time.Duration) {
	op := AttrDBOperation.String(operation)
	m.queryTotal.Inc(ctx, op)
	m.queryDuration.RecordDuration(ctx, elapsed, op)
	if elapsed > slow {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// =============================================================================
// GORM plugin
// =============================================================================

// DBPlugin instruments GORM with otelgorm spans, slow-query annotations and
// optional query metrics. Pass it to persistence.WithPlugins.
type DBPlugin struct {
	config  DBConfig
	metrics *DBMetrics
	logger  *zap.Logger
}

var _ gorm.Plugin = (*DBPlugin)(nil)

// NewDBPlugin creates a DBPlugin; metrics may be nil
func NewDBPlugin(cfg DBConfig, metrics *DBMetrics, logger *zap.Logger) *DBPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBPlugin{config: cfg, metrics: metrics, logger: logger}
}

// Name implements gorm.Plugin
func (p *DBPlugin) Name() string {
	return "catsync:telemetry"
}

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

type dbStartKey struct{}

// Initialize implements gorm.Plugin
func (p *DBPlugin) Initialize(db *gorm.DB) error {
	if p.config.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
		if !p.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if p.config.TracerProvider != nil {
			opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	stages := []struct {
		name, op      string
		before, after registrar
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", "SELECT", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", "UPDATE", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", "", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", "", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, s := range stages {
		op := s.op
		if err := s.before.Register("catsync_telemetry:before_"+s.name, p.before); err != nil {
			return err
		}
		if err := s.after.Register("catsync_telemetry:after_"+s.name, func(tx *gorm.DB) { p.after(tx, op) }); err != nil {
			return err
		}
	}

	p.logger.Info("Database telemetry enabled",
		zap.Bool("tracing", p.config.Tracing),
		zap.Bool("metrics", p.metrics != nil),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThreshold),
	)
	return nil
}

func (p *DBPlugin) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

func (p *DBPlugin) after(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(dbStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if operation == "" {
		operation = detectOperation(db.Statement.SQL.String())
	}

	if p.metrics != nil {
		p.metrics.record(ctx, operation, db.Statement.Table, elapsed, p.config.SlowQueryThreshold)
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if elapsed > p.config.SlowQueryThreshold {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThreshold.Milliseconds()),
		))
	}
}

func detectOperation(stmt string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(stmt), " ")
	switch v := strings.ToUpper(verb); v {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return v
	default:
		return "OTHER"
	}
}
