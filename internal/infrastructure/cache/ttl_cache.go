package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ttlEntry is a cached value with its insertion time
type ttlEntry[V any] struct {
	data       V
	insertedAt time.Time
}

// TTLCache is an in-memory Store. An entry is live while now - insertedAt < ttl.
// Expired entries are dropped lazily on read and eagerly by Sweep.
type TTLCache[V any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	hits    atomic.Int64
	misses  atomic.Int64
}

// TTLCacheOption configures a TTLCache
type TTLCacheOption func(*ttlOptions)

type ttlOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) TTLCacheOption {
	return func(o *ttlOptions) {
		o.now = now
	}
}

// NewTTLCache creates an in-memory cache whose entries live for ttl
func NewTTLCache[V any](name string, ttl time.Duration, opts ...TTLCacheOption) *TTLCache[V] {
	o := ttlOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[V]{
		name:    name,
		ttl:     ttl,
		now:     o.now,
		entries: make(map[string]ttlEntry[V]),
	}
}

// Name returns the cache name
func (c *TTLCache[V]) Name() string {
	return c.name
}

// Get returns a live entry and records a hit or miss
func (c *TTLCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.live(e) {
		c.hits.Add(1)
		return e.data, true
	}
	if ok {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && !c.live(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set stores value under key, resetting its age
func (c *TTLCache[V]) Set(_ context.Context, key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{data: value, insertedAt: c.now()}
}

// Delete removes key
func (c *TTLCache[V]) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeletePrefix removes every key starting with prefix
func (c *TTLCache[V]) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Clear removes every entry; counters are kept
func (c *TTLCache[V]) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ttlEntry[V])
}

// Sweep drops expired entries and returns how many were removed
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !c.live(e) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns the counters and current size
func (c *TTLCache[V]) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Name:    c.name,
		TTL:     c.ttl,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: size,
	}
}

func (c *TTLCache[V]) live(e ttlEntry[V]) bool {
	return c.now().Sub(e.insertedAt) < c.ttl
}

var (
	_ Store[int] = (*TTLCache[int])(nil)
	_ Sweeper    = (*TTLCache[int])(nil)
)
