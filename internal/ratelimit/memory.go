package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	count int64
	reset time.Time
}

// MemoryStore is a mutex-guarded in-process fixed-window counter.
// Entries reset lazily when their window passes; Sweep evicts stale
// keys so the map does not grow without bound.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (Entry, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.reset) {
		e = &memEntry{reset: now.Add(window)}
		s.entries[key] = e
	}
	e.count++

	return Entry{Count: e.count, Reset: e.reset}, nil
}

// Sweep removes entries whose window has passed.
func (s *MemoryStore) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if now.After(e.reset) {
			delete(s.entries, k)
		}
	}
}

// StartSweeper runs Sweep on a ticker until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
