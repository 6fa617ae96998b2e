package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. Only correct for a single
// server instance.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	lastGC  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket), now: time.Now}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastGC) > window {
		s.gc(now)
	}

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, b.resetAt.Sub(now), nil
}

func (s *MemoryStore) gc(now time.Time) {
	for key, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, key)
		}
	}
	s.lastGC = now
}

// Len reports the number of live buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
