package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisCachePrefix = "catsync:cache:"

// RedisTTLCache is a Store shared across instances. Values are JSON encoded
// and expire through Redis TTLs. Hit/miss counters are per process and
// Entries is not tracked.
type RedisTTLCache[V any] struct {
	client *redis.Client
	name   string
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisTTLCache creates a Redis-backed cache under keyPrefix + name + ":"
func NewRedisTTLCache[V any](client *redis.Client, keyPrefix, name string, ttl time.Duration, logger *zap.Logger) *RedisTTLCache[V] {
	if keyPrefix == "" {
		keyPrefix = defaultRedisCachePrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTTLCache[V]{
		client: client,
		name:   name,
		prefix: keyPrefix + name + ":",
		ttl:    ttl,
		logger: logger.Named("cache").With(zap.String("cache", name)),
	}
}

// Name returns the cache name
func (c *RedisTTLCache[V]) Name() string {
	return c.name
}

// Get reads and decodes key. Redis or decode failures count as misses.
func (c *RedisTTLCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.misses.Add(1)
		return zero, false
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, c.prefix+key)
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return v, true
}

// Set encodes value and stores it with the cache TTL
func (c *RedisTTLCache[V]) Set(ctx context.Context, key string, value V) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cannot encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key
func (c *RedisTTLCache[V]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("Redis cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePrefix removes every key starting with prefix using SCAN
func (c *RedisTTLCache[V]) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			c.logger.Warn("Redis cache bulk delete failed", zap.Error(err))
		}
		batch = batch[:0]
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()
	if err := iter.Err(); err != nil {
		c.logger.Warn("Redis cache scan failed", zap.Error(err))
	}
}

// Clear removes every entry of this cache
func (c *RedisTTLCache[V]) Clear(ctx context.Context) {
	c.DeletePrefix(ctx, "")
}

// Stats returns the per-process counters
func (c *RedisTTLCache[V]) Stats() Stats {
	return Stats{
		Name:   c.name,
		TTL:    c.ttl,
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

var _ Store[int] = (*RedisTTLCache[int])(nil)
