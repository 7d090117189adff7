package repository

import (
	"context"
	"database/sql"
	"time"

	"schedshare/core/database"
	"schedshare/core/logger"
	"schedshare/modules/sync/entity"

	"github.com/google/uuid"
)

// ConnectionRepository persists per-user sync configuration.
// GetByUserID returns (nil, nil) when the user has no connection row.
type ConnectionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error)
	Upsert(ctx context.Context, conn *entity.CalendarConnection) error
	// UpsertLastSyncedAt records the end of a run, inserting a default row
	// when the user has none yet.
	UpsertLastSyncedAt(ctx context.Context, userID uuid.UUID, at time.Time) error
	// ListDueForSync returns user ids with enabled connections whose
	// last_synced_at is null or older than the cutoff.
	ListDueForSync(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type connectionRepository struct {
	db database.IDatabase
}

func NewConnectionRepository(db database.IDatabase) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	query := `SELECT * FROM calendar_connections WHERE user_id = $1`
	err := r.db.GetContext(ctx, &conn, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:GetByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) Upsert(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		INSERT INTO calendar_connections (
			user_id, enabled, push_enabled, sync_window_past_days,
			sync_window_future_days, last_synced_at, created_at, updated_at
		)
		VALUES (:user_id, :enabled, :push_enabled, :sync_window_past_days,
			:sync_window_future_days, :last_synced_at, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			enabled = EXCLUDED.enabled,
			push_enabled = EXCLUDED.push_enabled,
			sync_window_past_days = EXCLUDED.sync_window_past_days,
			sync_window_future_days = EXCLUDED.sync_window_future_days,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, conn)
	if err != nil {
		logger.Error("ConnectionRepository:Upsert:Error", "error", err, "user_id", conn.UserID)
		return err
	}
	return nil
}

func (r *connectionRepository) UpsertLastSyncedAt(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
		INSERT INTO calendar_connections (
			user_id, enabled, push_enabled, sync_window_past_days,
			sync_window_future_days, last_synced_at, created_at, updated_at
		)
		VALUES ($1, true, false, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at, updated_at = NOW()
	`
	err := r.db.ExecContext(ctx, query, userID, 30, 90, at)
	if err != nil {
		logger.Error("ConnectionRepository:UpsertLastSyncedAt:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *connectionRepository) ListDueForSync(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	query := `
		SELECT user_id FROM calendar_connections
		WHERE enabled = true AND (last_synced_at IS NULL OR last_synced_at < $1)
		ORDER BY last_synced_at NULLS FIRST
	`
	if err := r.db.SelectContext(ctx, &userIDs, query, cutoff); err != nil {
		logger.Error("ConnectionRepository:ListDueForSync:Error", "error", err)
		return nil, err
	}
	return userIDs, nil
}

func (r *connectionRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM calendar_connections WHERE user_id = $1`
	return r.db.ExecContext(ctx, query, userID)
}
