package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Factory builds the claim store and catalog cache from configuration,
// falling back to in-memory implementations when Redis is unreachable
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to memory when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// redisClient connects lazily and reuses one client for both products
func (f *Factory) redisClient() (*redis.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	f.client = client
	return client, nil
}

// NewClaimStore returns a Redis claim store when Redis is enabled and reachable
func (f *Factory) NewClaimStore() (shared.ClaimStore, error) {
	if f.cacheConfig.Backend != BackendRedis {
		return NewInMemoryClaimStore(), nil
	}
	client, err := f.redisClient()
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, using in-memory claim store", zap.Error(err))
		return NewInMemoryClaimStore(), nil
	}
	return NewRedisClaimStore(client, f.cacheConfig.KeyPrefix+"claim:"), nil
}

// NewCatalogCache returns the configured catalog cache
func (f *Factory) NewCatalogCache() (*CatalogCache, error) {
	ttl := TTLConfig{
		Search:        f.cacheConfig.SearchTTL,
		Details:       f.cacheConfig.DetailsTTL,
		Stock:         f.cacheConfig.StockTTL,
		Categories:    f.cacheConfig.CategoryTTL,
		SweepInterval: f.cacheConfig.SweepInterval,
	}
	if f.cacheConfig.Backend != BackendRedis {
		return NewInMemoryCatalogCache(ttl, f.logger), nil
	}
	client, err := f.redisClient()
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, using in-memory catalog cache", zap.Error(err))
		return NewInMemoryCatalogCache(ttl, f.logger), nil
	}
	return NewRedisCatalogCache(client, f.cacheConfig.KeyPrefix+"cache:", ttl, f.logger), nil
}

// Close releases the shared Redis client, if any
func (f *Factory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
