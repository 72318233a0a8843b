package cache

import (
	"context"
	"time"
)

// Store is a named key/value cache with per-store TTL.
// Reads never fail: backend errors count as misses.
type Store[V any] interface {
	Name() string
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
	Clear(ctx context.Context)
	Stats() Stats
}

// Sweeper is implemented by stores that need explicit expiry passes
type Sweeper interface {
	Sweep() int
}

// Stats is a snapshot of a store's counters
type Stats struct {
	Name    string        `json:"name"`
	TTL     time.Duration `json:"ttl"`
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
	Entries int           `json:"entries"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// GetOrLoad returns the cached value for key, or calls load and caches its result.
// Load errors are returned and nothing is cached.
func GetOrLoad[V any](ctx context.Context, s Store[V], key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := s.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	s.Set(ctx, key, v)
	return v, nil
}
