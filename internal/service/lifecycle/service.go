// Package lifecycle owns crawl job reads and mutations after
// admission: listing, partial updates, and deletion, with per-job
// ownership enforcement.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/repository"
)

type UpdateRequest struct {
	Status         *string    `json:"status"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	RecordsScraped *int64     `json:"records_scraped"`
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
}

type Service struct {
	jobs repository.CrawlJobsRepository
}

func New(jobs repository.CrawlJobsRepository) *Service {
	return &Service{jobs: jobs}
}

// List returns the caller's jobs, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]model.CrawlJob, error) {
	jobs, err := s.jobs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}
	return jobs, nil
}

// checkOwned validates the id format, fetches the job, and enforces
// that the principal owns it.
func (s *Service) checkOwned(ctx context.Context, p model.Principal, jobID string) (*model.CrawlJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, apierr.BadRequest("invalid job id format")
	}
	job, err := s.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get crawl job: %w", err)
	}
	if job == nil {
		return nil, apierr.NotFound("crawl job not found")
	}
	if job.UserID != p.ID {
		return nil, apierr.Forbidden("not allowed to modify this crawl job")
	}
	return job, nil
}

// Update applies only the fields present in the request. The status
// set is validated; transition order is the caller's contract (the
// scraper fleet reports forward-only).
func (s *Service) Update(ctx context.Context, p model.Principal, jobID string, req UpdateRequest) (*model.CrawlJob, error) {
	if _, err := s.checkOwned(ctx, p, jobID); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if req.Status != nil {
		st, ok := model.ParseJobStatus(*req.Status)
		if !ok {
			return nil, apierr.BadRequest(fmt.Sprintf("invalid status %q", *req.Status))
		}
		fields["status"] = st.String()
	}
	if req.StartTime != nil {
		fields["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		fields["end_time"] = *req.EndTime
	}
	if req.RecordsScraped != nil {
		fields["records_scraped"] = *req.RecordsScraped
	}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	if len(fields) > 0 {
		if err := s.jobs.UpdateFields(ctx, jobID, fields); err != nil {
			return nil, fmt.Errorf("update crawl job: %w", err)
		}
	}

	job, err := s.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("reload crawl job: %w", err)
	}
	if job == nil {
		return nil, apierr.NotFound("crawl job not found")
	}
	return job, nil
}

// Delete removes the job after the same id-format and ownership checks.
func (s *Service) Delete(ctx context.Context, p model.Principal, jobID string) error {
	if _, err := s.checkOwned(ctx, p, jobID); err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("crawl job not found")
		}
		return fmt.Errorf("delete crawl job: %w", err)
	}
	return nil
}
