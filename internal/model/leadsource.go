package model

import (
	"database/sql"
	"time"
)

// LeadSource is a crawlable source with a declarative parameter schema.
// Maintained by an external admin process; read-only here.
type LeadSource struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
	InputSchema []byte         `db:"input_schema"` // JSON, parsed via schema.Parse
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// AccountLeadSource grants an account access to a source.
type AccountLeadSource struct {
	AccountID int64 `db:"account_id"`
	SourceID  int64 `db:"source_id"`
	IsEnabled bool  `db:"is_enabled"`
}
