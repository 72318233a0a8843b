package cache

import (
	"context"
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
)

// claim is a held key with expiration
type claim struct {
	expiresAt time.Time
}

// InMemoryClaimStore implements ClaimStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryClaimStore struct {
	mu        sync.Mutex
	claims    map[string]claim
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryClaimStore creates a new in-memory claim store.
// It starts a background goroutine to drop expired claims.
func NewInMemoryClaimStore() *InMemoryClaimStore {
	store := &InMemoryClaimStore{
		claims:   make(map[string]claim),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Claim reserves key for ttl. An expired claim can be taken over.
func (s *InMemoryClaimStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.claims[key]; exists && time.Now().Before(c.expiresAt) {
		return false, nil
	}
	s.claims[key] = claim{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// Release drops the claim on key
func (s *InMemoryClaimStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryClaimStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryClaimStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryClaimStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, c := range s.claims {
		if now.After(c.expiresAt) {
			delete(s.claims, key)
		}
	}
}

// Size returns the number of held claims
func (s *InMemoryClaimStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

var _ shared.ClaimStore = (*InMemoryClaimStore)(nil)
