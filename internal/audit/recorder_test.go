package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/crawl-gateway/internal/config"
	"github.com/leadgrid/crawl-gateway/internal/model"
)

type fakeEventsRepo struct {
	mu      sync.Mutex
	batches [][]model.UsageEvent
}

func (f *fakeEventsRepo) InsertBatch(_ context.Context, events []model.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]model.UsageEvent, len(events))
	copy(batch, events)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeEventsRepo) ListByAccount(_ context.Context, _ int64, _, _ int) ([]model.UsageEvent, error) {
	return nil, nil
}

func (f *fakeEventsRepo) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestRecorder_FlushesOnBatchSize(t *testing.T) {
	repo := &fakeEventsRepo{}
	rec := NewRecorder(repo, config.AuditConfig{
		Buffer: 16, BatchSize: 3, FlushInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)

	for i := 0; i < 3; i++ {
		rec.Record(model.UsageEvent{AccountID: 3, Path: "/crawl-jobs", Status: 200})
	}

	require.Eventually(t, func() bool { return repo.total() == 3 },
		time.Second, 10*time.Millisecond)

	cancel()
	rec.Wait()
}

func TestRecorder_DrainsOnShutdown(t *testing.T) {
	repo := &fakeEventsRepo{}
	rec := NewRecorder(repo, config.AuditConfig{
		Buffer: 16, BatchSize: 100, FlushInterval: time.Hour,
	})

	rec.Record(model.UsageEvent{AccountID: 3, Path: "/lead-sources", Status: 200})
	rec.Record(model.UsageEvent{AccountID: 3, Path: "/crawl-jobs", Status: 201})

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)
	cancel()
	rec.Wait()

	assert.Equal(t, 2, repo.total())
}

func TestRecorder_AssignsEventID(t *testing.T) {
	repo := &fakeEventsRepo{}
	rec := NewRecorder(repo, config.AuditConfig{Buffer: 4, BatchSize: 1, FlushInterval: time.Hour})

	rec.Record(model.UsageEvent{AccountID: 3})

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)
	cancel()
	rec.Wait()

	require.Equal(t, 1, repo.total())
	ev := repo.batches[0][0]
	assert.Len(t, ev.EventID, 26) // ULID text form
	assert.False(t, ev.CreatedAt.IsZero())
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	repo := &fakeEventsRepo{}
	rec := NewRecorder(repo, config.AuditConfig{Buffer: 2, BatchSize: 100, FlushInterval: time.Hour})

	// no Run loop draining; the third event has nowhere to go
	for i := 0; i < 3; i++ {
		rec.Record(model.UsageEvent{AccountID: 3})
	}

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)
	cancel()
	rec.Wait()

	assert.Equal(t, 2, repo.total())
}
