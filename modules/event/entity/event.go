package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventSource marks where an event originated. Events imported from the
// remote calendar carry SourceRemote and are never pushed back.
type EventSource string

const (
	SourceLocal  EventSource = "LOCAL"
	SourceRemote EventSource = "REMOTE"
)

// Visibility controls who can see the event in shared calendars.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityFriends Visibility = "friends"
	VisibilityPublic  Visibility = "public"
)

// Event is a locally owned calendar event.
type Event struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	OwnerID      uuid.UUID   `db:"owner_id" json:"owner_id"`
	Title        string      `db:"title" json:"title"`
	Description  *string     `db:"description" json:"description,omitempty"`
	LocationName *string     `db:"location_name" json:"location_name,omitempty"`
	StartAt      time.Time   `db:"start_at" json:"start_at"`
	EndAt        time.Time   `db:"end_at" json:"end_at"`
	Timezone     string      `db:"timezone" json:"timezone"`
	AllDay       bool        `db:"all_day" json:"all_day"`
	Source       EventSource `db:"source" json:"source"`
	ExternalID   *string     `db:"external_id" json:"external_id,omitempty"`
	SyncToGoogle bool        `db:"sync_to_google" json:"sync_to_google"`
	Visibility   Visibility  `db:"visibility" json:"visibility"`
	ShareSlug    string      `db:"share_slug" json:"share_slug"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}
