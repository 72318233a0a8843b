package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newTestMeter returns a meter backed by a manual reader
func newTestMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("test"), reader
}

// collect gathers every metric from reader keyed by name
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// intValue sums the data points of an int64 sum or gauge matching attr
func intValue(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	want := attribute.NewSet(attrs...)
	var total int64
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			if len(attrs) == 0 || dp.Attributes.Equals(&want) {
				total += dp.Value
			}
		}
	case metricdata.Gauge[int64]:
		for _, dp := range data.DataPoints {
			if len(attrs) == 0 || dp.Attributes.Equals(&want) {
				total += dp.Value
			}
		}
	default:
		t.Fatalf("metric %s has unexpected data %T", m.Name, m.Data)
	}
	return total
}

func histogramCount(t *testing.T, m metricdata.Metrics) uint64 {
	t.Helper()
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is not a float64 histogram", m.Name)
	var n uint64
	for _, dp := range data.DataPoints {
		n += dp.Count
	}
	return n
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    time.Minute,
		ServiceName:       "catalogsync-test",
	}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, cfg, mp.GetConfig())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	meter, reader := newTestMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "test_counter", "test", "1")
	require.NoError(t, err)

	counter.Add(ctx, 5, attribute.String("kind", "a"))
	counter.Inc(ctx, attribute.String("kind", "a"))
	counter.Inc(ctx, attribute.String("kind", "b"))

	m := collect(t, reader)["test_counter"]
	assert.Equal(t, int64(6), intValue(t, m, attribute.String("kind", "a")))
	assert.Equal(t, int64(7), intValue(t, m))
}

func TestHistogram(t *testing.T) {
	meter, reader := newTestMeter(t)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "test_latency",
		Unit:       "s",
		Boundaries: telemetry.DBDurationBuckets,
	})
	require.NoError(t, err)

	h.Record(ctx, 0.02)
	h.RecordDuration(ctx, 300*time.Millisecond)

	m := collect(t, reader)["test_latency"]
	assert.Equal(t, uint64(2), histogramCount(t, m))

	data := m.Data.(metricdata.Histogram[float64])
	assert.Equal(t, telemetry.DBDurationBuckets, data.DataPoints[0].Bounds)
}

func TestHistogram_NoBoundaries(t *testing.T) {
	meter, _ := newTestMeter(t)

	h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{Name: "plain"})
	require.NoError(t, err)
	h.Record(context.Background(), 1)
}
