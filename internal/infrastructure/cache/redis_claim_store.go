package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultClaimPrefix = "catsync:claim:"

// RedisClaimStore implements ClaimStore with SETNX so every instance
// behind the webhook sees the same claims
type RedisClaimStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClaimStore creates a claim store on an existing client
func NewRedisClaimStore(client *redis.Client, keyPrefix string) *RedisClaimStore {
	if keyPrefix == "" {
		keyPrefix = defaultClaimPrefix
	}
	return &RedisClaimStore{client: client, keyPrefix: keyPrefix}
}

// Claim reserves key for ttl atomically
func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the claim on key
func (s *RedisClaimStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller
func (s *RedisClaimStore) Close() error {
	return nil
}

var _ shared.ClaimStore = (*RedisClaimStore)(nil)
