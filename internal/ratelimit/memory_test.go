package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CountsWithinWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		e, err := s.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, e.Count)
	}

	// a different key counts independently
	e, err := s.Incr(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Count)
}

func TestMemoryStore_ResetsAfterWindow(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	e1, _ := s.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), e1.Count)

	// advance past the window boundary
	now = now.Add(61 * time.Second)
	e2, _ := s.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), e2.Count)
	assert.True(t, e2.Reset.After(e1.Reset))
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = s.Incr(ctx, "stale", time.Second)
	_, _ = s.Incr(ctx, "fresh", time.Hour)

	now = now.Add(2 * time.Second)
	s.Sweep()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotContains(t, s.entries, "stale")
	assert.Contains(t, s.entries, "fresh")
}

func TestMemoryStore_ConcurrentIncrExact(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, _ = s.Incr(ctx, "shared", time.Hour)
			}
		}()
	}
	wg.Wait()

	e, err := s.Incr(ctx, "shared", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker+1), e.Count)
}
