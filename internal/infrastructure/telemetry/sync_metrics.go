package telemetry

import (
	"context"
	"time"

	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Sync operations reported through RecordSyncItems
const (
	SyncOperationMaterialize = "materialize"
	SyncOperationImport      = "import"
	SyncOperationStockResync = "stock_resync"
	SyncOperationSourcing    = "sourcing"
)

// Outcomes reported through RecordSyncItems
const (
	SyncOutcomeCreated = "created"
	SyncOutcomeUpdated = "updated"
	SyncOutcomeSkipped = "skipped"
	SyncOutcomeFailed  = "failed"
)

// SyncMetricsConfig configures SyncMetrics. InFlight and CacheStats are
// optional sources for the observable instruments.
type SyncMetricsConfig struct {
	Meter      metric.Meter
	Logger     *zap.Logger
	InFlight   func() int64
	CacheStats func() []cache.Stats
}

// SyncMetrics tracks notification handling, sync throughput and cache
// effectiveness
type SyncMetrics struct {
	logger *zap.Logger

	notificationsTotal   *Counter
	notificationDuration *Histogram
	duplicatesTotal      *Counter
	syncItemsTotal       *Counter

	registration metric.Registration
}

// NewSyncMetrics creates the instrument set and registers observable callbacks
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{logger: logger}
	var err error

	sm.notificationsTotal, err = NewCounter(cfg.Meter,
		"catsync_notifications_total",
		"Supplier change notifications by type and terminal status",
		"{notifications}")
	if err != nil {
		return nil, err
	}

	sm.notificationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "catsync_notification_duration_seconds",
		Description: "Time from receipt to terminal status",
		Unit:        "s",
		Boundaries:  NotificationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.duplicatesTotal, err = NewCounter(cfg.Meter,
		"catsync_notification_duplicates_total",
		"Redelivered notifications short-circuited by message id",
		"{notifications}")
	if err != nil {
		return nil, err
	}

	sm.syncItemsTotal, err = NewCounter(cfg.Meter,
		"catsync_sync_items_total",
		"Products touched by sync operations by outcome",
		"{products}")
	if err != nil {
		return nil, err
	}

	if err := sm.registerObservers(cfg); err != nil {
		return nil, err
	}
	return sm, nil
}

func (sm *SyncMetrics) registerObservers(cfg SyncMetricsConfig) error {
	if cfg.InFlight == nil && cfg.CacheStats == nil {
		return nil
	}

	inflight, err := cfg.Meter.Int64ObservableGauge("catsync_notifications_inflight",
		metric.WithDescription("Notification tasks still running after the fast ack"),
		metric.WithUnit("{tasks}"))
	if err != nil {
		return err
	}
	hits, err := cfg.Meter.Int64ObservableCounter("catsync_cache_hits_total",
		metric.WithDescription("Cache hits by store"),
		metric.WithUnit("{lookups}"))
	if err != nil {
		return err
	}
	misses, err := cfg.Meter.Int64ObservableCounter("catsync_cache_misses_total",
		metric.WithDescription("Cache misses by store"),
		metric.WithUnit("{lookups}"))
	if err != nil {
		return err
	}
	entries, err := cfg.Meter.Int64ObservableGauge("catsync_cache_entries",
		metric.WithDescription("Live cache entries by store"),
		metric.WithUnit("{entries}"))
	if err != nil {
		return err
	}

	sm.registration, err = cfg.Meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if cfg.InFlight != nil {
			o.ObserveInt64(inflight, cfg.InFlight())
		}
		if cfg.CacheStats != nil {
			for _, s := range cfg.CacheStats() {
				attrs := metric.WithAttributes(AttrCacheStore.String(s.Name))
				o.ObserveInt64(hits, s.Hits, attrs)
				o.ObserveInt64(misses, s.Misses, attrs)
				o.ObserveInt64(entries, int64(s.Entries), attrs)
			}
		}
		return nil
	}, inflight, hits, misses, entries)
	return err
}

// RecordNotification records the outcome of one dispatched notification
func (sm *SyncMetrics) RecordNotification(ctx context.Context, notificationType, status string, latency time.Duration, duplicate bool) {
	typeAttr := AttrNotificationType.String(notificationType)
	if duplicate {
		sm.duplicatesTotal.Inc(ctx, typeAttr)
		return
	}
	sm.notificationsTotal.Inc(ctx, typeAttr, AttrNotificationStatus.String(status))
	sm.notificationDuration.RecordDuration(ctx, latency, typeAttr)
}

// RecordSyncItems adds n products with the given outcome to an operation
func (sm *SyncMetrics) RecordSyncItems(ctx context.Context, operation, outcome string, n int) {
	if n <= 0 {
		return
	}
	sm.syncItemsTotal.Add(ctx, int64(n), AttrSyncOperation.String(operation), AttrSyncOutcome.String(outcome))
}

// Close unregisters the observable callbacks
func (sm *SyncMetrics) Close() error {
	if sm.registration == nil {
		return nil
	}
	return sm.registration.Unregister()
}
