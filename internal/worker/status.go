// Package worker runs the status relay: it consumes progress reports
// from the scraper fleet and applies them to the crawl job store.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/kafka"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/repository"
)

// consumer is the slice of the Kafka consumer the relay uses.
type consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// StatusRelay applies StatusUpdate messages to crawl jobs. Updates come
// from the scraper fleet over the internal broker, so there is no
// ownership check here; the API surface never reaches this path.
type StatusRelay struct {
	Consumer consumer
	Jobs     repository.CrawlJobsRepository
}

func NewStatusRelay(c *kafka.Consumer, jobs repository.CrawlJobsRepository) *StatusRelay {
	return &StatusRelay{Consumer: c, Jobs: jobs}
}

// Run consumes until ctx is cancelled. Malformed messages are logged
// and committed so they do not wedge the partition; store failures are
// not committed and come back around after restart.
func (w *StatusRelay) Run(ctx context.Context) error {
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.L().Error("status relay fetch failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}

		if err := w.apply(ctx, m.Value); err != nil {
			logger.L().Error("status update apply failed",
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := w.Consumer.Commit(ctx, m); err != nil && ctx.Err() == nil {
			logger.L().Error("status relay commit failed", zap.Error(err))
		}
	}
}

func (w *StatusRelay) apply(ctx context.Context, payload []byte) error {
	var upd model.StatusUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		logger.L().Warn("status relay: malformed payload skipped", zap.Error(err))
		return nil
	}
	if upd.JobID == "" {
		logger.L().Warn("status relay: payload without job_id skipped")
		return nil
	}

	fields := make(map[string]any)
	if upd.Status != "" {
		st, ok := model.ParseJobStatus(upd.Status)
		if !ok {
			logger.L().Warn("status relay: unknown status skipped",
				zap.String("job_id", upd.JobID),
				zap.String("status", upd.Status),
			)
			return nil
		}
		fields["status"] = st.String()
	}
	if upd.StartTime != nil {
		fields["start_time"] = *upd.StartTime
	}
	if upd.EndTime != nil {
		fields["end_time"] = *upd.EndTime
	}
	if upd.RecordsScraped != nil {
		fields["records_scraped"] = *upd.RecordsScraped
	}
	if len(fields) == 0 {
		return nil
	}

	job, err := w.Jobs.GetByJobID(ctx, upd.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.L().Warn("status relay: unknown job skipped", zap.String("job_id", upd.JobID))
		return nil
	}

	return w.Jobs.UpdateFields(ctx, upd.JobID, fields)
}
