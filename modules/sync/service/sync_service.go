package service

import (
	"context"
	"time"

	"schedshare/core/cache"
	"schedshare/core/constants"
	"schedshare/core/errors"
	"schedshare/core/logger"
	"schedshare/modules/sync/dto"
	"schedshare/modules/sync/entity"
	"schedshare/modules/sync/repository"

	"github.com/google/uuid"
)

const syncLockKeyPrefix = "sync:lock:"

// SyncService is the sync orchestrator plus the connection management
// operations behind the HTTP surface.
type SyncService interface {
	// RunSync performs one pull-then-push cycle. Concurrent runs for the
	// same user are rejected with ErrSyncInProgress.
	RunSync(ctx context.Context, userID uuid.UUID) (dto.SyncSummary, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (*dto.SyncStatusResponse, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.SyncSettingsRequest) (*dto.SyncStatusResponse, error)
	// Disconnect removes the connection and all event mappings. Local
	// events stay; they simply stop syncing.
	Disconnect(ctx context.Context, userID uuid.UUID) error
}

type syncService struct {
	pull        *PullEngine
	push        *PushEngine
	connections repository.ConnectionRepository
	mappings    repository.MappingRepository
	locks       cache.Cache
	archiver    Archiver
	now         func() time.Time
}

// NewSyncService wires the orchestrator. archiver may be nil when run
// archiving is not configured.
func NewSyncService(
	pull *PullEngine,
	push *PushEngine,
	connections repository.ConnectionRepository,
	mappings repository.MappingRepository,
	locks cache.Cache,
	archiver Archiver,
) SyncService {
	return &syncService{
		pull:        pull,
		push:        push,
		connections: connections,
		mappings:    mappings,
		locks:       locks,
		archiver:    archiver,
		now:         time.Now,
	}
}

func (s *syncService) RunSync(ctx context.Context, userID uuid.UUID) (dto.SyncSummary, error) {
	lockKey := syncLockKeyPrefix + userID.String()
	acquired, err := s.locks.AcquireLock(ctx, lockKey, constants.SyncLockTTL)
	if err != nil {
		logger.Error("SyncService:AcquireLock:Error", "error", err, "user_id", userID)
		return dto.SyncSummary{}, errors.NewAppError(errors.ErrInternalServer, "failed to acquire sync lock", err)
	}
	if !acquired {
		return dto.SyncSummary{}, errors.NewAppError(errors.ErrSyncInProgress, "a sync run is already in progress for this user", nil)
	}
	defer func() {
		if err := s.locks.ReleaseLock(ctx, lockKey); err != nil {
			logger.Warn("SyncService:ReleaseLock:Error", "error", err, "user_id", userID)
		}
	}()

	logger.Info("SyncService:RunSync:Start", "user_id", userID)

	summary, pullErr := s.pull.Pull(ctx, userID)

	// A whole-pull abort means the local view may be stale; pushing on top
	// of it would write guesses to the remote side.
	if pullErr == nil {
		pushSummary, pushErr := s.push.Push(ctx, userID)
		mergeSummary(&summary, pushSummary)
		if pushErr != nil {
			logger.Warn("SyncService:Push:Aborted", "error", pushErr, "user_id", userID)
		}
	} else {
		logger.Warn("SyncService:Pull:Aborted", "error", pullErr, "user_id", userID)
	}

	finishedAt := s.now().UTC()
	if err := s.connections.UpsertLastSyncedAt(ctx, userID, finishedAt); err != nil {
		summary.Errors = append(summary.Errors, dto.SyncError{
			Kind: dto.ErrorKindPersistence, Message: err.Error(),
		})
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveRun(ctx, userID, summary, finishedAt); err != nil {
			// Archiving is best effort and never fails the run.
			logger.Warn("SyncService:Archive:Error", "error", err, "user_id", userID)
		}
	}

	logger.Info("SyncService:RunSync:Done",
		"user_id", userID,
		"pulled", summary.Pulled,
		"pushed", summary.Pushed,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (s *syncService) GetStatus(ctx context.Context, userID uuid.UUID) (*dto.SyncStatusResponse, error) {
	conn, err := s.connections.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load sync status", err)
	}
	if conn == nil {
		return &dto.SyncStatusResponse{
			Connected:            false,
			SyncWindowPastDays:   constants.DefaultSyncWindowPastDays,
			SyncWindowFutureDays: constants.DefaultSyncWindowFutureDays,
		}, nil
	}

	return &dto.SyncStatusResponse{
		Connected:            true,
		Enabled:              conn.Enabled,
		PushEnabled:          conn.PushEnabled,
		SyncWindowPastDays:   conn.SyncWindowPastDays,
		SyncWindowFutureDays: conn.SyncWindowFutureDays,
		LastSyncedAt:         conn.LastSyncedAt,
	}, nil
}

func (s *syncService) UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.SyncSettingsRequest) (*dto.SyncStatusResponse, error) {
	conn, err := s.connections.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load sync settings", err)
	}
	if conn == nil {
		conn = &entity.CalendarConnection{
			UserID:               userID,
			Enabled:              true,
			SyncWindowPastDays:   constants.DefaultSyncWindowPastDays,
			SyncWindowFutureDays: constants.DefaultSyncWindowFutureDays,
		}
	}

	if req.Enabled != nil {
		conn.Enabled = *req.Enabled
	}
	if req.PushEnabled != nil {
		conn.PushEnabled = *req.PushEnabled
	}
	if req.SyncWindowPastDays != nil {
		if *req.SyncWindowPastDays <= 0 {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "sync_window_past_days must be positive", nil)
		}
		conn.SyncWindowPastDays = *req.SyncWindowPastDays
	}
	if req.SyncWindowFutureDays != nil {
		if *req.SyncWindowFutureDays <= 0 {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "sync_window_future_days must be positive", nil)
		}
		conn.SyncWindowFutureDays = *req.SyncWindowFutureDays
	}

	if err := s.connections.Upsert(ctx, conn); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save sync settings", err)
	}

	logger.Info("SyncService:SettingsUpdated", "user_id", userID, "enabled", conn.Enabled, "push_enabled", conn.PushEnabled)
	return s.GetStatus(ctx, userID)
}

func (s *syncService) Disconnect(ctx context.Context, userID uuid.UUID) error {
	if err := s.mappings.DeleteByUserID(ctx, userID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to delete event mappings", err)
	}
	if err := s.connections.Delete(ctx, userID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to delete connection", err)
	}
	logger.Info("SyncService:Disconnected", "user_id", userID)
	return nil
}

func mergeSummary(dst *dto.SyncSummary, src dto.SyncSummary) {
	dst.Pulled += src.Pulled
	dst.Pushed += src.Pushed
	dst.Updated += src.Updated
	dst.Deleted += src.Deleted
	dst.Errors = append(dst.Errors, src.Errors...)
}
