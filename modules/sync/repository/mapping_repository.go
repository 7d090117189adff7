package repository

import (
	"context"
	"database/sql"

	"schedshare/core/database"
	"schedshare/core/logger"
	"schedshare/modules/sync/entity"

	"github.com/google/uuid"
)

// MappingRepository persists the local↔remote event correspondence.
// Lookups return (nil, nil) for absent mappings.
type MappingRepository interface {
	GetByExternalID(ctx context.Context, userID uuid.UUID, externalEventID string) (*entity.EventMapping, error)
	GetByLocalEventID(ctx context.Context, localEventID uuid.UUID) (*entity.EventMapping, error)
	Create(ctx context.Context, m *entity.EventMapping) (*entity.EventMapping, error)
	Update(ctx context.Context, m *entity.EventMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type mappingRepository struct {
	db database.IDatabase
}

func NewMappingRepository(db database.IDatabase) MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) GetByExternalID(ctx context.Context, userID uuid.UUID, externalEventID string) (*entity.EventMapping, error) {
	var m entity.EventMapping
	query := `
		SELECT * FROM event_mappings
		WHERE user_id = $1 AND external_event_id = $2
	`
	err := r.db.GetContext(ctx, &m, query, userID, externalEventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MappingRepository:GetByExternalID:Error", "error", err, "user_id", userID, "external_event_id", externalEventID)
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepository) GetByLocalEventID(ctx context.Context, localEventID uuid.UUID) (*entity.EventMapping, error) {
	var m entity.EventMapping
	query := `SELECT * FROM event_mappings WHERE local_event_id = $1`
	err := r.db.GetContext(ctx, &m, query, localEventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MappingRepository:GetByLocalEventID:Error", "error", err, "local_event_id", localEventID)
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepository) Create(ctx context.Context, m *entity.EventMapping) (*entity.EventMapping, error) {
	query := `
		INSERT INTO event_mappings (
			user_id, local_event_id, external_event_id, external_etag,
			external_updated_at, last_pulled_at, last_pushed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		m.UserID, m.LocalEventID, m.ExternalEventID, m.ExternalEtag,
		m.ExternalUpdatedAt, m.LastPulledAt, m.LastPushedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		logger.Error("MappingRepository:Create:Error", "error", err, "user_id", m.UserID, "external_event_id", m.ExternalEventID)
		return nil, err
	}
	return m, nil
}

func (r *mappingRepository) Update(ctx context.Context, m *entity.EventMapping) error {
	query := `
		UPDATE event_mappings
		SET external_etag = $1, external_updated_at = $2, last_pulled_at = $3,
			last_pushed_at = $4, updated_at = NOW()
		WHERE id = $5
	`
	err := r.db.ExecContext(ctx, query,
		m.ExternalEtag, m.ExternalUpdatedAt, m.LastPulledAt, m.LastPushedAt, m.ID,
	)
	if err != nil {
		logger.Error("MappingRepository:Update:Error", "error", err, "id", m.ID)
	}
	return err
}

func (r *mappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM event_mappings WHERE id = $1`
	return r.db.ExecContext(ctx, query, id)
}

func (r *mappingRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM event_mappings WHERE user_id = $1`
	return r.db.ExecContext(ctx, query, userID)
}
