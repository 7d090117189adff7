package entity

import (
	"time"

	"github.com/google/uuid"

	"schedshare/core/entity"
)

// EventMapping associates one local event with one remote event, plus the
// bookkeeping that drives loop prevention. Unique on (user_id,
// external_event_id) and on local_event_id.
type EventMapping struct {
	entity.BaseEntity
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	LocalEventID      uuid.UUID  `db:"local_event_id" json:"local_event_id"`
	ExternalEventID   string     `db:"external_event_id" json:"external_event_id"`
	ExternalEtag      *string    `db:"external_etag" json:"external_etag,omitempty"`
	ExternalUpdatedAt *time.Time `db:"external_updated_at" json:"external_updated_at,omitempty"`
	LastPulledAt      *time.Time `db:"last_pulled_at" json:"last_pulled_at,omitempty"`
	LastPushedAt      *time.Time `db:"last_pushed_at" json:"last_pushed_at,omitempty"`
}

func (EventMapping) TableName() string {
	return "event_mappings"
}
