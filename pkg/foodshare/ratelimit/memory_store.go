package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps attempts in process memory. Its guarantees hold per
// instance only; use RedisStore when running more than one server.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string]Attempts
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string]Attempts)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Attempts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key], nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Attempts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[key]
	if !ok || !now.Before(a.ExpiresAt) {
		a = Attempts{FirstAt: now, ExpiresAt: now.Add(window)}
	}
	a.Count++
	s.attempts[key] = a
	return a, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, key)
	return nil
}

// Cleanup drops windows that have elapsed at now
func (s *MemoryStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, a := range s.attempts {
		if !now.Before(a.ExpiresAt) {
			delete(s.attempts, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Cleanup(now)
			}
		}
	}()
}
