package entity

import (
	"time"

	"github.com/google/uuid"

	"schedshare/core/entity"
)

// CalendarConnection is the per-user sync configuration and status. One row
// per user, created on first OAuth linkage, deleted on disconnect.
type CalendarConnection struct {
	entity.BaseEntity
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	Enabled              bool       `db:"enabled" json:"enabled"`
	PushEnabled          bool       `db:"push_enabled" json:"push_enabled"`
	SyncWindowPastDays   int        `db:"sync_window_past_days" json:"sync_window_past_days"`
	SyncWindowFutureDays int        `db:"sync_window_future_days" json:"sync_window_future_days"`
	LastSyncedAt         *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}
