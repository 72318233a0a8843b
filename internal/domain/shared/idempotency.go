package shared

import (
	"context"
	"time"
)

// ClaimStore guards a key (typically an inbound message id) against concurrent
// duplicate processing across redeliveries.
type ClaimStore interface {
	// Claim reserves key for ttl.
	// Returns true if the caller now owns the key, false if someone else holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so the key can be processed again.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// ClaimConfig holds configuration for message claims
type ClaimConfig struct {
	// TTL bounds how long a claim survives a crashed worker.
	// Default: 10 minutes
	TTL time.Duration
}

// DefaultClaimConfig returns the default claim configuration
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{TTL: 10 * time.Minute}
}
