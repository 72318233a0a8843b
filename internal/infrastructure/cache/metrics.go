package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterMetrics exports the catalog cache counters as observable instruments
func RegisterMetrics(meter metric.Meter, c *CatalogCache) error {
	hits, err := meter.Int64ObservableCounter("catalog_cache_hits_total",
		metric.WithDescription("Catalog cache lookups served from cache"))
	if err != nil {
		return fmt.Errorf("failed to create cache hits counter: %w", err)
	}
	misses, err := meter.Int64ObservableCounter("catalog_cache_misses_total",
		metric.WithDescription("Catalog cache lookups that went upstream"))
	if err != nil {
		return fmt.Errorf("failed to create cache misses counter: %w", err)
	}
	entries, err := meter.Int64ObservableGauge("catalog_cache_entries",
		metric.WithDescription("Live entries per catalog cache"))
	if err != nil {
		return fmt.Errorf("failed to create cache entries gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, s := range c.Stats() {
			attrs := metric.WithAttributes(attribute.String("cache", s.Name))
			o.ObserveInt64(hits, s.Hits, attrs)
			o.ObserveInt64(misses, s.Misses, attrs)
			o.ObserveInt64(entries, int64(s.Entries), attrs)
		}
		return nil
	}, hits, misses, entries)
	if err != nil {
		return fmt.Errorf("failed to register cache metrics callback: %w", err)
	}
	return nil
}
