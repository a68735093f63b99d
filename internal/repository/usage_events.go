package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/leadgrid/crawl-gateway/internal/model"
)

// UsageEventsRepository persists request audit rows in ClickHouse.
type UsageEventsRepository interface {
	InsertBatch(ctx context.Context, events []model.UsageEvent) error
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]model.UsageEvent, error)
}

type UsageEventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewUsageEventsRepository(db *sqlx.DB) *UsageEventsRepositoryImpl {
	return &UsageEventsRepositoryImpl{db: db}
}

var _ UsageEventsRepository = (*UsageEventsRepositoryImpl)(nil)

// InsertBatch writes a batch in one prepared-statement transaction, the
// shape the ClickHouse driver turns into a single block insert.
func (r *UsageEventsRepositoryImpl) InsertBatch(ctx context.Context, events []model.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO usage_events
		    (event_id, account_id, user_id, method, path, status, latency_ms, client_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			ev.EventID, ev.AccountID, ev.UserID, ev.Method, ev.Path,
			ev.Status, ev.LatencyMs, ev.ClientIP, ev.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *UsageEventsRepositoryImpl) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]model.UsageEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var events []model.UsageEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT event_id, account_id, user_id, method, path, status, latency_ms, client_ip, created_at
		  FROM usage_events
		 WHERE account_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return events, nil
}
