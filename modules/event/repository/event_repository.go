package repository

import (
	"context"
	"database/sql"
	"fmt"

	"schedshare/core/database"
	"schedshare/core/logger"
	"schedshare/core/utils"
	"schedshare/modules/event/entity"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Repository is the local event store consumed by the sync engine.
// GetByID returns (nil, nil) for unknown ids.
type Repository interface {
	Create(ctx context.Context, ev *entity.Event) (*entity.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	ListByOwnerAndSource(ctx context.Context, ownerID uuid.UUID, source entity.EventSource) ([]entity.Event, error)
	Update(ctx context.Context, ev *entity.Event) error
	// SetExternalID mirrors the mapping's external id onto the event row
	// without touching updated_at, so a first push does not mark the event
	// as locally modified again.
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type eventRepository struct {
	db database.IDatabase
}

func NewEventRepository(db database.IDatabase) Repository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, ev *entity.Event) (*entity.Event, error) {
	if ev.ShareSlug == "" {
		ev.ShareSlug = fmt.Sprintf("%s-%s", slug.Make(ev.Title), utils.GenerateID())
	}
	if ev.Visibility == "" {
		ev.Visibility = entity.VisibilityPrivate
	}

	query := `
		INSERT INTO events (
			owner_id, title, description, location_name, start_at, end_at,
			timezone, all_day, source, external_id, sync_to_google, visibility, share_slug
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		ev.OwnerID, ev.Title, ev.Description, ev.LocationName, ev.StartAt, ev.EndAt,
		ev.Timezone, ev.AllDay, ev.Source, ev.ExternalID, ev.SyncToGoogle, ev.Visibility, ev.ShareSlug,
	).Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		logger.Error("EventRepository:Create:Error", "error", err, "owner_id", ev.OwnerID)
		return nil, err
	}
	return ev, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	var ev entity.Event
	query := `SELECT * FROM events WHERE id = $1`
	err := r.db.GetContext(ctx, &ev, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("EventRepository:GetByID:Error", "error", err, "id", id)
		return nil, err
	}
	return &ev, nil
}

func (r *eventRepository) ListByOwnerAndSource(ctx context.Context, ownerID uuid.UUID, source entity.EventSource) ([]entity.Event, error) {
	var events []entity.Event
	query := `
		SELECT * FROM events
		WHERE owner_id = $1 AND source = $2
		ORDER BY start_at
	`
	if err := r.db.SelectContext(ctx, &events, query, ownerID, source); err != nil {
		logger.Error("EventRepository:ListByOwnerAndSource:Error", "error", err, "owner_id", ownerID, "source", source)
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, ev *entity.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, location_name = $3, start_at = $4,
			end_at = $5, timezone = $6, all_day = $7, visibility = $8,
			sync_to_google = $9, updated_at = NOW()
		WHERE id = $10
	`
	err := r.db.ExecContext(ctx, query,
		ev.Title, ev.Description, ev.LocationName, ev.StartAt,
		ev.EndAt, ev.Timezone, ev.AllDay, ev.Visibility,
		ev.SyncToGoogle, ev.ID,
	)
	if err != nil {
		logger.Error("EventRepository:Update:Error", "error", err, "id", ev.ID)
	}
	return err
}

func (r *eventRepository) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	query := `UPDATE events SET external_id = $1 WHERE id = $2`
	return r.db.ExecContext(ctx, query, externalID, id)
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM events WHERE id = $1`
	return r.db.ExecContext(ctx, query, id)
}
