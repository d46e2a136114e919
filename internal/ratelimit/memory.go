package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type hit struct {
	id string
	at time.Time
}

// MemoryStore keeps windows in process memory. It is suitable for a single
// instance; use RedisStore when several instances share limits.
type MemoryStore struct {
	mu      sync.Mutex
	hits    map[string][]hit
	windows map[string]time.Duration
	seq     uint64
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hits:    make(map[string][]hit),
		windows: make(map[string]time.Duration),
		now:     time.Now,
	}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := prune(s.hits[key], now.Add(-window))
	s.seq++
	id := strconv.FormatUint(s.seq, 10)
	kept = append(kept, hit{id: id, at: now})
	s.hits[key] = kept
	s.windows[key] = window
	return len(kept), id, nil
}

// Undo implements Store.
func (s *MemoryStore) Undo(_ context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[key]
	for i, h := range hits {
		if h.id == id {
			s.hits[key] = append(hits[:i], hits[i+1:]...)
			break
		}
	}
	return nil
}

// Prune drops expired hits and empty keys.
func (s *MemoryStore) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, hits := range s.hits {
		kept := prune(hits, now.Add(-s.windows[key]))
		if len(kept) == 0 {
			delete(s.hits, key)
			delete(s.windows, key)
			continue
		}
		s.hits[key] = kept
	}
}

// Run prunes every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

// prune returns the hits strictly after cutoff. Hits are kept in time order.
func prune(hits []hit, cutoff time.Time) []hit {
	i := 0
	for i < len(hits) && !hits[i].at.After(cutoff) {
		i++
	}
	return hits[i:]
}
