// Package admission validates, quota-checks, and persists crawl job
// submissions on behalf of tenant accounts.
package admission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/metrics"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/repository"
	"github.com/leadgrid/crawl-gateway/internal/schema"
)

const (
	// JobsTopic is the outbox topic the scraper fleet consumes.
	JobsTopic = "crawl.jobs"

	// DefaultDailyJobLimit caps admissions per account in a trailing 24h.
	DefaultDailyJobLimit = 10

	quotaWindow = 24 * time.Hour
)

type SubmitRequest struct {
	SourceID    int64          `json:"source_id"`
	Title       string         `json:"title"`
	Params      map[string]any `json:"params"`
	Description string         `json:"description,omitempty"`
}

type Service struct {
	sources   repository.LeadSourcesRepository
	jobs      repository.CrawlJobsRepository
	maxPerDay int
	now       func() time.Time
}

func New(sources repository.LeadSourcesRepository, jobs repository.CrawlJobsRepository, maxPerDay int) *Service {
	if maxPerDay <= 0 {
		maxPerDay = DefaultDailyJobLimit
	}
	return &Service{
		sources:   sources,
		jobs:      jobs,
		maxPerDay: maxPerDay,
		now:       time.Now,
	}
}

// Submit runs the full admission check and, if it passes, persists the
// job (status pending) together with its dispatch event in one
// transaction. Any failure before that point leaves no partial row.
// Returns the created job and the validated, typed parameter values.
func (s *Service) Submit(ctx context.Context, p model.Principal, req SubmitRequest) (*model.CrawlJob, schema.Params, error) {
	sourceLabel := strconv.FormatInt(req.SourceID, 10)

	src, err := s.sources.GetByID(ctx, req.SourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get lead source: %w", err)
	}
	if src == nil || !src.IsActive {
		metrics.JobsTotal.WithLabelValues("rejected_source", sourceLabel).Inc()
		return nil, nil, apierr.NotFound("lead source not found")
	}

	enabled, err := s.sources.IsEnabledForAccount(ctx, p.AccountID, req.SourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("check source enablement: %w", err)
	}
	if !enabled {
		metrics.JobsTotal.WithLabelValues("rejected_source", sourceLabel).Inc()
		return nil, nil, apierr.Forbidden("lead source is not enabled for this account")
	}

	sch, err := schema.Parse(src.InputSchema)
	if err != nil {
		return nil, nil, fmt.Errorf("source %d: %w", src.ID, err)
	}
	typed, violations := sch.Validate(req.Params)
	if len(violations) > 0 {
		metrics.JobsTotal.WithLabelValues("rejected_validation", sourceLabel).Inc()
		return nil, nil, apierr.BadRequest("invalid parameters: " + strings.Join(violations, ", "))
	}

	// Sliding 24h quota, keyed off creation time. Counted fresh on every
	// submission; two in-flight submissions may both pass, bounded to
	// one extra job.
	now := s.now()
	count, err := s.jobs.CountForAccountSince(ctx, p.AccountID, now.Add(-quotaWindow))
	if err != nil {
		return nil, nil, fmt.Errorf("count recent jobs: %w", err)
	}
	if count >= int64(s.maxPerDay) {
		metrics.JobsTotal.WithLabelValues("rejected_quota", sourceLabel).Inc()
		return nil, nil, apierr.TooManyRequests(
			fmt.Sprintf("daily limit of %d jobs exceeded: %d jobs created in the last 24 hours", s.maxPerDay, count),
			0,
		)
	}

	rawParams, err := json.Marshal(req.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal params: %w", err)
	}

	job := model.CrawlJob{
		JobID:     uuid.NewString(),
		AccountID: p.AccountID,
		UserID:    p.ID,
		SourceID:  req.SourceID,
		Title:     req.Title,
		Params:    rawParams,
		Status:    model.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != "" {
		job.Description = sql.NullString{String: req.Description, Valid: true}
	}

	payload, err := json.Marshal(model.JobEnvelope{
		JobID:     job.JobID,
		AccountID: job.AccountID,
		UserID:    job.UserID,
		SourceID:  job.SourceID,
		Title:     job.Title,
		Params:    rawParams,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal envelope: %w", err)
	}

	if err := s.jobs.CreateWithOutbox(ctx, job, JobsTopic, payload); err != nil {
		logger.L().Error("crawl job create failed",
			zap.Int64("account_id", p.AccountID),
			zap.Int64("source_id", req.SourceID),
			zap.String("job_id", job.JobID),
			zap.Error(err),
		)
		return nil, nil, apierr.Internal("failed to create crawl job")
	}

	metrics.JobsTotal.WithLabelValues("admitted", sourceLabel).Inc()
	return &job, typed, nil
}
