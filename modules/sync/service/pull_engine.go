package service

import (
	"context"
	"time"

	"schedshare/core/constants"
	"schedshare/core/errors"
	"schedshare/core/logger"
	eventRepo "schedshare/modules/event/repository"
	"schedshare/modules/sync/dto"
	"schedshare/modules/sync/entity"
	"schedshare/modules/sync/mapper"
	"schedshare/modules/sync/repository"

	"github.com/google/uuid"
)

const remoteStatusCancelled = "cancelled"

// PullEngine imports and updates local events from the remote calendar.
type PullEngine struct {
	client      CalendarClient
	connections repository.ConnectionRepository
	mappings    repository.MappingRepository
	events      eventRepo.Repository
	now         func() time.Time
}

func NewPullEngine(
	client CalendarClient,
	connections repository.ConnectionRepository,
	mappings repository.MappingRepository,
	events eventRepo.Repository,
) *PullEngine {
	return &PullEngine{
		client:      client,
		connections: connections,
		mappings:    mappings,
		events:      events,
		now:         time.Now,
	}
}

// Pull reconciles the sync window's remote events into the local store. A
// non-nil error means the whole pull was aborted (listing or auth failure);
// per-event failures are recorded in the summary and do not abort.
func (e *PullEngine) Pull(ctx context.Context, userID uuid.UUID) (dto.SyncSummary, error) {
	var summary dto.SyncSummary
	now := e.now().UTC()

	pastDays := constants.DefaultSyncWindowPastDays
	futureDays := constants.DefaultSyncWindowFutureDays
	conn, err := e.connections.GetByUserID(ctx, userID)
	if err != nil {
		logger.Warn("PullEngine:GetConnection:Error", "error", err, "user_id", userID)
	}
	if conn != nil {
		if conn.SyncWindowPastDays > 0 {
			pastDays = conn.SyncWindowPastDays
		}
		if conn.SyncWindowFutureDays > 0 {
			futureDays = conn.SyncWindowFutureDays
		}
	}

	timeMin := now.AddDate(0, 0, -pastDays)
	timeMax := now.AddDate(0, 0, futureDays)

	// All-or-nothing: a partial page set cannot be told apart from a
	// complete one, so a listing failure aborts the pull.
	remoteEvents, err := e.client.ListAllEvents(ctx, userID, timeMin, timeMax)
	if err != nil {
		logger.Error("PullEngine:ListAllEvents:Error", "error", err, "user_id", userID)
		summary.Errors = append(summary.Errors, dto.SyncError{
			Kind:    classifyError(err),
			Message: err.Error(),
		})
		return summary, err
	}

	logger.Info("PullEngine:Listed", "user_id", userID, "count", len(remoteEvents), "time_min", timeMin, "time_max", timeMax)

	for _, remote := range remoteEvents {
		if remote.ID == "" {
			continue
		}

		if remote.Status == remoteStatusCancelled {
			e.pullCancelled(ctx, userID, remote, &summary)
			continue
		}

		times, ok := mapper.ResolveEventTimes(remote)
		if !ok {
			// Malformed remote data; nothing actionable to report.
			continue
		}

		e.pullOne(ctx, userID, remote, times, now, &summary)
	}

	return summary, nil
}

func (e *PullEngine) pullCancelled(ctx context.Context, userID uuid.UUID, remote dto.RemoteEvent, summary *dto.SyncSummary) {
	m, err := e.mappings.GetByExternalID(ctx, userID, remote.ID)
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}
	if m == nil {
		return
	}

	if err := e.events.Delete(ctx, m.LocalEventID); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}
	if err := e.mappings.Delete(ctx, m.ID); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}

	summary.Deleted++
}

func (e *PullEngine) pullOne(ctx context.Context, userID uuid.UUID, remote dto.RemoteEvent, times mapper.EventTimes, now time.Time, summary *dto.SyncSummary) {
	m, err := e.mappings.GetByExternalID(ctx, userID, remote.ID)
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}

	if m == nil {
		e.importNew(ctx, userID, remote, times, now, summary)
		return
	}

	// Unchanged etag means the remote resource has not moved since the
	// last pull; writing nothing here is what breaks the update loop.
	if m.ExternalEtag != nil && remote.Etag != "" && *m.ExternalEtag == remote.Etag {
		return
	}

	local, err := e.events.GetByID(ctx, m.LocalEventID)
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}
	if local == nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: "mapping points at a missing local event",
		})
		return
	}

	mapper.ApplyRemote(local, remote, times)
	if err := e.events.Update(ctx, local); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}

	e.refreshMapping(m, remote)
	m.LastPulledAt = &now
	if err := e.mappings.Update(ctx, m); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}

	summary.Updated++
}

func (e *PullEngine) importNew(ctx context.Context, userID uuid.UUID, remote dto.RemoteEvent, times mapper.EventTimes, now time.Time, summary *dto.SyncSummary) {
	local := mapper.NewLocalEvent(userID, remote, times)
	created, err := e.events.Create(ctx, local)
	if err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}

	m := &entity.EventMapping{
		UserID:          userID,
		LocalEventID:    created.ID,
		ExternalEventID: remote.ID,
		LastPulledAt:    &now,
	}
	e.refreshMapping(m, remote)
	if _, err := e.mappings.Create(ctx, m); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			EventID: remote.ID, Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
		return
	}

	summary.Pulled++
}

// refreshMapping stores the etag and updated stamp observed on the remote
// event.
func (e *PullEngine) refreshMapping(m *entity.EventMapping, remote dto.RemoteEvent) {
	m.ExternalEtag = nil
	if remote.Etag != "" {
		etag := remote.Etag
		m.ExternalEtag = &etag
	}
	m.ExternalUpdatedAt = mapper.ParseUpdated(remote)
}

// classifyError maps an error to the sync error taxonomy.
func classifyError(err error) dto.SyncErrorKind {
	if _, ok := err.(*RemoteAPIError); ok {
		return dto.ErrorKindRemoteAPI
	}
	switch errors.CodeOf(err) {
	case errors.ErrNoLinkedAccount, errors.ErrNoRefreshToken, errors.ErrUnauthorized:
		return dto.ErrorKindAuth
	case errors.ErrRemoteAPI:
		return dto.ErrorKindRemoteAPI
	}
	return dto.ErrorKindPersistence
}
