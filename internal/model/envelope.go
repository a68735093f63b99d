package model

import (
	"encoding/json"
	"time"
)

// JobEnvelope is the outbox payload published to Kafka for admitted jobs.
// The scraper fleet consumes it from the crawl.jobs topic.
type JobEnvelope struct {
	JobID     string          `json:"job_id"`
	AccountID int64           `json:"account_id"`
	UserID    int64           `json:"user_id"`
	SourceID  int64           `json:"source_id"`
	Title     string          `json:"title"`
	Params    json.RawMessage `json:"params"`
}

// StatusUpdate is the progress report published by the scraper fleet on
// the crawl.status topic and applied by the status-relay worker.
type StatusUpdate struct {
	JobID          string     `json:"job_id"`
	Status         string     `json:"status"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	RecordsScraped *int64     `json:"records_scraped,omitempty"`
}
