package model

import (
	"database/sql"
	"strings"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) Valid() bool {
	return s == JobPending || s == JobRunning || s == JobCompleted || s == JobFailed
}

// ParseJobStatus normalizes input; returns (value, true) if valid.
func ParseJobStatus(s string) (JobStatus, bool) {
	st := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// CrawlJob is the DB entity persisted in crawl_jobs. Created pending by
// admission; moved forward by the owning user or the scraper fleet.
type CrawlJob struct {
	JobID          string         `db:"job_id"` // UUID string
	AccountID      int64          `db:"account_id"`
	UserID         int64          `db:"user_id"`
	SourceID       int64          `db:"source_id"`
	Title          string         `db:"title"`
	Description    sql.NullString `db:"description"`
	Params         []byte         `db:"params"` // JSON parameter bag
	Status         JobStatus      `db:"status"`
	StartTime      sql.NullTime   `db:"start_time"`
	EndTime        sql.NullTime   `db:"end_time"`
	RecordsScraped sql.NullInt64  `db:"records_scraped"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
