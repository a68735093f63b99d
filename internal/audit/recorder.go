// Package audit buffers per-request usage events and flushes them to
// ClickHouse in batches, off the request path.
package audit

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/config"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/metrics"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/repository"
)

const (
	defaultBuffer        = 1024
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
)

// Recorder accepts events on a bounded channel and writes them out in
// batches. When the buffer is full the event is dropped, never blocking
// the caller.
type Recorder struct {
	events        repository.UsageEventsRepository
	ch            chan model.UsageEvent
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
}

func NewRecorder(events repository.UsageEventsRepository, cfg config.AuditConfig) *Recorder {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Recorder{
		events:        events,
		ch:            make(chan model.UsageEvent, buffer),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// Record enqueues one event. Assigns the event id if the caller left it
// empty. Drops on a full buffer.
func (r *Recorder) Record(ev model.UsageEvent) {
	if ev.EventID == "" {
		ev.EventID = ulid.Make().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	select {
	case r.ch <- ev:
	default:
		metrics.AuditDroppedTotal.Inc()
	}
}

// Run drains the channel until ctx is cancelled, flushing when the
// batch fills or the interval elapses. A final flush runs on shutdown.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]model.UsageEvent, 0, r.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.events.InsertBatch(context.Background(), batch); err != nil {
			logger.L().Error("usage event flush failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-r.ch:
			batch = append(batch, ev)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			// drain whatever is already buffered
			for {
				select {
				case ev := <-r.ch:
					batch = append(batch, ev)
					if len(batch) >= r.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() {
	<-r.done
}
