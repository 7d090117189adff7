package service

import (
	"context"
	"time"

	"schedshare/core/logger"
	eventEntity "schedshare/modules/event/entity"
	eventRepo "schedshare/modules/event/repository"
	"schedshare/modules/sync/dto"
	"schedshare/modules/sync/entity"
	"schedshare/modules/sync/mapper"
	"schedshare/modules/sync/repository"

	"github.com/google/uuid"
)

// PushEngine exports locally created events to the remote calendar.
type PushEngine struct {
	client      CalendarClient
	connections repository.ConnectionRepository
	mappings    repository.MappingRepository
	events      eventRepo.Repository
	now         func() time.Time
}

func NewPushEngine(
	client CalendarClient,
	connections repository.ConnectionRepository,
	mappings repository.MappingRepository,
	events eventRepo.Repository,
) *PushEngine {
	return &PushEngine{
		client:      client,
		connections: connections,
		mappings:    mappings,
		events:      events,
		now:         time.Now,
	}
}

// Push exports unsynced local events. Only events with Source LOCAL are
// candidates; pulled events are never echoed back. An auth failure aborts the
// whole push since every later call would fail the same way.
func (e *PushEngine) Push(ctx context.Context, userID uuid.UUID) (dto.SyncSummary, error) {
	var summary dto.SyncSummary

	pushEnabled := false
	conn, err := e.connections.GetByUserID(ctx, userID)
	if err != nil {
		logger.Warn("PushEngine:GetConnection:Error", "error", err, "user_id", userID)
	}
	if conn != nil {
		pushEnabled = conn.PushEnabled
	}

	candidates, err := e.events.ListByOwnerAndSource(ctx, userID, eventEntity.SourceLocal)
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return summary, err
	}

	for i := range candidates {
		ev := &candidates[i]

		if !pushEnabled && !ev.SyncToGoogle {
			continue
		}
		// A pulled event can never reach here through the LOCAL listing,
		// but the invariant is cheap to state.
		if ev.Source != eventEntity.SourceLocal {
			continue
		}

		if err := e.pushOne(ctx, userID, ev, &summary); err != nil {
			if classifyError(err) == dto.ErrorKindAuth {
				logger.Error("PushEngine:AuthFailure", "error", err, "user_id", userID)
				return summary, err
			}
		}
	}

	return summary, nil
}

func (e *PushEngine) pushOne(ctx context.Context, userID uuid.UUID, ev *eventEntity.Event, summary *dto.SyncSummary) error {
	m, err := e.mappings.GetByLocalEventID(ctx, ev.ID)
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: ev.ID.String(), Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return err
	}

	if m == nil {
		return e.insertRemote(ctx, userID, ev, summary)
	}

	// Nothing changed locally since the last push; skipping the write is
	// what keeps repeated runs from ping-ponging updates.
	if m.LastPushedAt != nil && !ev.UpdatedAt.After(*m.LastPushedAt) {
		return nil
	}

	return e.updateRemote(ctx, ev, m, summary)
}

func (e *PushEngine) insertRemote(ctx context.Context, userID uuid.UUID, ev *eventEntity.Event, summary *dto.SyncSummary) error {
	created, err := e.client.InsertEvent(ctx, userID, mapper.ToEventPayload(ev))
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: ev.ID.String(), Kind: classifyError(err), Message: err.Error(),
		})
		return err
	}

	now := e.now().UTC()
	m := &entity.EventMapping{
		UserID:            userID,
		LocalEventID:      ev.ID,
		ExternalEventID:   created.ID,
		ExternalUpdatedAt: mapper.ParseUpdated(*created),
		LastPushedAt:      &now,
	}
	if created.Etag != "" {
		etag := created.Etag
		m.ExternalEtag = &etag
	}
	if _, err := e.mappings.Create(ctx, m); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: ev.ID.String(), Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return err
	}

	if err := e.events.SetExternalID(ctx, ev.ID, created.ID); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: ev.ID.String(), Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return err
	}

	summary.Pushed++
	return nil
}

func (e *PushEngine) updateRemote(ctx context.Context, ev *eventEntity.Event, m *entity.EventMapping, summary *dto.SyncSummary) error {
	updated, err := e.client.UpdateEvent(ctx, m.UserID, m.ExternalEventID, mapper.ToEventPayload(ev))
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: ev.ID.String(), Kind: classifyError(err), Message: err.Error(),
		})
		return err
	}

	// Recording the returned etag keeps the next pull from re-importing
	// our own write.
	m.ExternalEtag = nil
	if updated.Etag != "" {
		etag := updated.Etag
		m.ExternalEtag = &etag
	}
	m.ExternalUpdatedAt = mapper.ParseUpdated(*updated)
	now := e.now().UTC()
	m.LastPushedAt = &now
	if err := e.mappings.Update(ctx, m); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: ev.ID.String(), Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return err
	}

	summary.Updated++
	return nil
}
