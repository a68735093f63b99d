package model

import "time"

// UsageEvent is one request audit row, batched into ClickHouse by the
// logging stage recorder.
type UsageEvent struct {
	EventID   string    `db:"event_id"` // ULID
	AccountID int64     `db:"account_id"`
	UserID    int64     `db:"user_id"`
	Method    string    `db:"method"`
	Path      string    `db:"path"`
	Status    int       `db:"status"`
	LatencyMs int64     `db:"latency_ms"`
	ClientIP  string    `db:"client_ip"`
	CreatedAt time.Time `db:"created_at"`
}
