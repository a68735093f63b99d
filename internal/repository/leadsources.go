package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/leadgrid/crawl-gateway/internal/model"
)

type LeadSourcesRepository interface {
	// GetByID returns (nil, nil) when no source matches.
	GetByID(ctx context.Context, id int64) (*model.LeadSource, error)
	// IsEnabledForAccount reports whether the account has the source granted and enabled.
	IsEnabledForAccount(ctx context.Context, accountID, sourceID int64) (bool, error)
	// ListEnabledForAccount returns globally active sources enabled for the account.
	ListEnabledForAccount(ctx context.Context, accountID int64) ([]model.LeadSource, error)
}

type LeadSourcesRepositoryImpl struct {
	db *sqlx.DB
}

func NewLeadSourcesRepository(db *sqlx.DB) *LeadSourcesRepositoryImpl {
	return &LeadSourcesRepositoryImpl{db: db}
}

var _ LeadSourcesRepository = (*LeadSourcesRepositoryImpl)(nil)

func (r *LeadSourcesRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.LeadSource, error) {
	var s model.LeadSource
	err := r.db.GetContext(ctx, &s, `
		SELECT id, name, description, is_active, input_schema, created_at, updated_at
		  FROM lead_sources
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *LeadSourcesRepositoryImpl) IsEnabledForAccount(ctx context.Context, accountID, sourceID int64) (bool, error) {
	var enabled bool
	err := r.db.GetContext(ctx, &enabled, `
		SELECT is_enabled
		  FROM account_lead_sources
		 WHERE account_id = ? AND source_id = ? LIMIT 1
	`, accountID, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *LeadSourcesRepositoryImpl) ListEnabledForAccount(ctx context.Context, accountID int64) ([]model.LeadSource, error) {
	var sources []model.LeadSource
	err := r.db.SelectContext(ctx, &sources, `
		SELECT s.id, s.name, s.description, s.is_active, s.input_schema, s.created_at, s.updated_at
		  FROM lead_sources s
		  JOIN account_lead_sources als
		    ON als.source_id = s.id
		 WHERE als.account_id = ?
		   AND als.is_enabled = TRUE
		   AND s.is_active = TRUE
		 ORDER BY s.id
	`, accountID)
	if err != nil {
		return nil, err
	}
	return sources, nil
}
