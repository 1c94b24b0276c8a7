package claim

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how often Claim drops lapsed keys.
const sweepEvery = time.Minute

// InMemoryStore is the single-process claim store used when Redis is not
// configured. Lapsed claims are swept during Claim so the map only holds
// keys whose TTL has not run out.
type InMemoryStore struct {
	mu        sync.Mutex
	claims    map[string]time.Time
	now       func() time.Time
	nextSweep time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{claims: make(map[string]time.Time), now: time.Now}
}

func (s *InMemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(sweepEvery)
	}
	if exp, ok := s.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.claims, key)
	return nil
}

// Len reports how many claims are held, lapsed or not.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *InMemoryStore) sweep(now time.Time) {
	for key, exp := range s.claims {
		if !now.Before(exp) {
			delete(s.claims, key)
		}
	}
}
