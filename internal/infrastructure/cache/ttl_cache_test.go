package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLCache_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	ttl := 2 * time.Minute

	t.Run("hit just before ttl", func(t *testing.T) {
		clock := newFakeClock()
		c := NewTTLCache[string]("stock", ttl, WithClock(clock.Now))
		c.Set(ctx, "k", "v")

		clock.Advance(ttl - time.Millisecond)
		v, ok := c.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})

	t.Run("miss at and after ttl", func(t *testing.T) {
		clock := newFakeClock()
		c := NewTTLCache[string]("stock", ttl, WithClock(clock.Now))
		c.Set(ctx, "k", "v")

		clock.Advance(ttl)
		_, ok := c.Get(ctx, "k")
		assert.False(t, ok)

		c.Set(ctx, "k", "v")
		clock.Advance(ttl + time.Millisecond)
		_, ok = c.Get(ctx, "k")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Stats().Entries, "expired entry is dropped on read")
	})

	t.Run("set resets age", func(t *testing.T) {
		clock := newFakeClock()
		c := NewTTLCache[string]("stock", ttl, WithClock(clock.Now))
		c.Set(ctx, "k", "v1")
		clock.Advance(ttl - time.Second)
		c.Set(ctx, "k", "v2")
		clock.Advance(ttl - time.Second)

		v, ok := c.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, "v2", v)
	})
}

func TestTTLCache_Counters(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[int]("details", time.Minute)

	_, _ = c.Get(ctx, "a")
	c.Set(ctx, "a", 1)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "a")

	s := c.Stats()
	assert.Equal(t, "details", s.Name)
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Entries)
	assert.InDelta(t, 2.0/3.0, s.HitRatio(), 0.0001)
	assert.Equal(t, 0.0, Stats{}.HitRatio())
}

func TestTTLCache_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewTTLCache[int]("search", time.Minute, WithClock(clock.Now))

	c.Set(ctx, "old", 1)
	clock.Advance(45 * time.Second)
	c.Set(ctx, "new", 2)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Stats().Entries)
	_, ok := c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestTTLCache_DeletePrefixAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[int]("stock", time.Minute)
	c.Set(ctx, "P1|V1|US", 1)
	c.Set(ctx, "P1|V2|US", 2)
	c.Set(ctx, "P2|V3|US", 3)

	c.DeletePrefix(ctx, "P1|")
	assert.Equal(t, 1, c.Stats().Entries)

	c.Clear(ctx)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[string]("details", time.Minute)
	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "loaded", nil
	}

	v, err := GetOrLoad(ctx, c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)

	v, err = GetOrLoad(ctx, c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
	assert.Equal(t, 1, calls, "second read is served from cache")

	boom := errors.New("upstream down")
	_, err = GetOrLoad(ctx, c, "other", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(ctx, "other")
	assert.False(t, ok, "errors are not cached")
}
