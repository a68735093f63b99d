package model

import (
	"database/sql"
	"time"
)

type Account struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Domain    sql.NullString `db:"domain"`
	Status    string         `db:"status"` // active|suspended
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (a Account) Active() bool { return a.Status == StatusActive }

// AccountSummary is the subset of account fields embedded in tokens
// and returned on login.
type AccountSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
	Status string `json:"status"`
}

func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:     a.ID,
		Name:   a.Name,
		Domain: a.Domain.String,
		Status: a.Status,
	}
}
