package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadgrid/crawl-gateway/internal/model"
)

// CrawlJobsRepository defines persistence for the crawl_jobs table.
type CrawlJobsRepository interface {
	// CreateWithOutbox inserts the job row and its outbox event in one
	// transaction, so an admitted job is never visible without its
	// dispatch event (and vice versa).
	CreateWithOutbox(ctx context.Context, job model.CrawlJob, topic string, payload []byte) error
	// GetByJobID returns (nil, nil) when no job matches.
	GetByJobID(ctx context.Context, jobID string) (*model.CrawlJob, error)
	ListByUser(ctx context.Context, userID int64) ([]model.CrawlJob, error)
	// CountForAccountSince counts the account's jobs created at or after since.
	// Read fresh on every admission check; never cached.
	CountForAccountSince(ctx context.Context, accountID int64, since time.Time) (int64, error)
	// UpdateFields applies only the given columns. Keys must be known columns.
	UpdateFields(ctx context.Context, jobID string, fields map[string]any) error
	Delete(ctx context.Context, jobID string) error
}

type CrawlJobsRepositoryImpl struct {
	db     *sqlx.DB
	outbox OutboxRepository
}

func NewCrawlJobsRepository(db *sqlx.DB, outbox OutboxRepository) *CrawlJobsRepositoryImpl {
	return &CrawlJobsRepositoryImpl{db: db, outbox: outbox}
}

var _ CrawlJobsRepository = (*CrawlJobsRepositoryImpl)(nil)

func (r *CrawlJobsRepositoryImpl) CreateWithOutbox(ctx context.Context, job model.CrawlJob, topic string, payload []byte) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO crawl_jobs
		    (job_id, account_id, user_id, source_id, title, description, params, status, created_at, updated_at)
		VALUES
		    (?,      ?,          ?,       ?,         ?,     ?,           ?,      ?,      NOW(),     NOW())
	`
	if _, err := tx.ExecContext(ctx, q,
		job.JobID, job.AccountID, job.UserID, job.SourceID,
		job.Title, job.Description, job.Params, job.Status.String(),
	); err != nil {
		return fmt.Errorf("insert crawl job: %w", err)
	}

	if err := r.outbox.Insert(ctx, tx, "crawl_job", job.JobID, topic, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	return tx.Commit()
}

func (r *CrawlJobsRepositoryImpl) GetByJobID(ctx context.Context, jobID string) (*model.CrawlJob, error) {
	var j model.CrawlJob
	err := r.db.GetContext(ctx, &j, `
		SELECT job_id, account_id, user_id, source_id, title, description, params,
		       status, start_time, end_time, records_scraped, created_at, updated_at
		  FROM crawl_jobs
		 WHERE job_id = ? LIMIT 1
	`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *CrawlJobsRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]model.CrawlJob, error) {
	var jobs []model.CrawlJob
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT job_id, account_id, user_id, source_id, title, description, params,
		       status, start_time, end_time, records_scraped, created_at, updated_at
		  FROM crawl_jobs
		 WHERE user_id = ?
		 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *CrawlJobsRepositoryImpl) CountForAccountSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM crawl_jobs WHERE account_id = ? AND created_at >= ?
	`, accountID, since)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// updatableColumns whitelists what UpdateFields may touch.
var updatableColumns = map[string]struct{}{
	"status":          {},
	"start_time":      {},
	"end_time":        {},
	"records_scraped": {},
	"title":           {},
	"description":     {},
}

func (r *CrawlJobsRepositoryImpl) UpdateFields(ctx context.Context, jobID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for col, val := range fields {
		if _, ok := updatableColumns[col]; !ok {
			return fmt.Errorf("column %q is not updatable", col)
		}
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, jobID)

	q := "UPDATE crawl_jobs SET " + strings.Join(sets, ", ") + " WHERE job_id = ?"
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *CrawlJobsRepositoryImpl) Delete(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM crawl_jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
