package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"schedshare/core/config"
	"schedshare/core/errors"
	"schedshare/core/logger"
	"schedshare/modules/sync/repository"
	"schedshare/modules/sync/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeSyncRun is the asynq task type for one user's sync run.
	TypeSyncRun = "sync:run"

	workerConcurrency = 5
	// enqueueTickDivisor keeps the scheduler polling a few times per sync
	// interval so users become due promptly after restarts.
	enqueueTickDivisor = 3
)

type SyncRunPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

func NewSyncRunTask(userID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncRunPayload{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync task payload: %w", err)
	}
	return asynq.NewTask(TypeSyncRun, payload), nil
}

// Handler processes queued sync tasks.
type Handler struct {
	service service.SyncService
}

func NewHandler(service service.SyncService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleSyncRunTask(ctx context.Context, t *asynq.Task) error {
	var payload SyncRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode sync task payload: %v: %w", err, asynq.SkipRetry)
	}

	summary, err := h.service.RunSync(ctx, payload.UserID)
	if err != nil {
		// Another run already holds the lease; the scheduled run is
		// redundant, not failed.
		if errors.CodeOf(err) == errors.ErrSyncInProgress {
			logger.Info("Worker:SyncRun:AlreadyRunning", "user_id", payload.UserID)
			return nil
		}
		logger.Error("Worker:SyncRun:Error", "error", err, "user_id", payload.UserID)
		return err
	}

	logger.Info("Worker:SyncRun:Done",
		"user_id", payload.UserID,
		"pulled", summary.Pulled,
		"pushed", summary.Pushed,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"errors", len(summary.Errors),
	)
	return nil
}

// RunWorker starts the asynq server and blocks until ctx is cancelled.
func RunWorker(ctx context.Context, cfg config.RedisConfig, svc service.SyncService) error {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB},
		asynq.Config{Concurrency: workerConcurrency},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSyncRun, NewHandler(svc).HandleSyncRunTask)

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start sync worker: %w", err)
	}

	<-ctx.Done()
	srv.Shutdown()
	return nil
}

// RunScheduler periodically enqueues sync tasks for users whose last run is
// older than the configured interval. Blocks until ctx is cancelled.
func RunScheduler(ctx context.Context, cfg *config.Config, connections repository.ConnectionRepository) error {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	interval := cfg.Sync.Interval
	tick := interval / enqueueTickDivisor
	if tick < time.Minute {
		tick = time.Minute
	}

	logger.Info("Sync scheduler started", "interval", interval, "tick", tick)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			enqueueDue(ctx, client, connections, interval)
		}
	}
}

func enqueueDue(ctx context.Context, client *asynq.Client, connections repository.ConnectionRepository, interval time.Duration) {
	cutoff := time.Now().UTC().Add(-interval)
	userIDs, err := connections.ListDueForSync(ctx, cutoff)
	if err != nil {
		logger.Error("Scheduler:ListDue:Error", "error", err)
		return
	}

	for _, userID := range userIDs {
		task, err := NewSyncRunTask(userID)
		if err != nil {
			logger.Error("Scheduler:BuildTask:Error", "error", err, "user_id", userID)
			continue
		}
		// Unique keeps one pending run per user even when a user stays
		// due across several ticks.
		_, err = client.EnqueueContext(ctx, task,
			asynq.TaskID(TypeSyncRun+":"+userID.String()),
			asynq.Unique(interval),
		)
		if err != nil && !stderrors.Is(err, asynq.ErrTaskIDConflict) && !stderrors.Is(err, asynq.ErrDuplicateTask) {
			logger.Error("Scheduler:Enqueue:Error", "error", err, "user_id", userID)
		}
	}
}
