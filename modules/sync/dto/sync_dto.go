package dto

import "time"

// Provider constants
const (
	ProviderGoogle = "google"
)

// ========== Run summary ==========

// SyncErrorKind classifies a per-event sync failure.
type SyncErrorKind string

const (
	ErrorKindAuth        SyncErrorKind = "auth"
	ErrorKindRemoteAPI   SyncErrorKind = "remote_api"
	ErrorKindPersistence SyncErrorKind = "persistence"
)

// SyncError identifies a single failed item within a run.
type SyncError struct {
	EventID string        `json:"event_id,omitempty"`
	Kind    SyncErrorKind `json:"kind"`
	Message string        `json:"message"`
}

// SyncSummary is the result of one pull, push, or combined run.
type SyncSummary struct {
	Pulled  int         `json:"pulled"`
	Pushed  int         `json:"pushed"`
	Updated int         `json:"updated"`
	Deleted int         `json:"deleted"`
	Errors  []SyncError `json:"errors,omitempty"`
}

// ========== Remote calendar wire types ==========

// EventTime is the remote API's start/end shape: either dateTime+timeZone
// for timed events or date for all-day events.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// RemoteEvent is the transient event DTO from the remote calendar API.
type RemoteEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Status      string    `json:"status,omitempty"`
	Etag        string    `json:"etag,omitempty"`
	Updated     string    `json:"updated,omitempty"`
}

// EventPayload is the body sent to the remote API on insert/update.
type EventPayload struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// ListEventsResponse is one page of the remote events listing.
type ListEventsResponse struct {
	Items         []RemoteEvent `json:"items"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// ========== HTTP surface ==========

// SyncSettingsRequest partially updates the user's sync configuration.
type SyncSettingsRequest struct {
	Enabled              *bool `json:"enabled,omitempty"`
	PushEnabled          *bool `json:"push_enabled,omitempty"`
	SyncWindowPastDays   *int  `json:"sync_window_past_days,omitempty"`
	SyncWindowFutureDays *int  `json:"sync_window_future_days,omitempty"`
}

// SyncStatusResponse describes the user's connection and last run.
type SyncStatusResponse struct {
	Connected            bool       `json:"connected"`
	Enabled              bool       `json:"enabled"`
	PushEnabled          bool       `json:"push_enabled"`
	SyncWindowPastDays   int        `json:"sync_window_past_days"`
	SyncWindowFutureDays int        `json:"sync_window_future_days"`
	LastSyncedAt         *time.Time `json:"last_synced_at,omitempty"`
}
