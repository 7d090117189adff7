package constants

import "time"

const (
	DefaultTimeout    = 10 * time.Second
	HTTPClientTimeout = 15 * time.Second

	// OAuth access tokens are refreshed when they expire within this buffer.
	TokenExpiryBuffer = 5 * time.Minute

	// Per-user lease held for the duration of a sync run.
	SyncLockTTL = 5 * time.Minute

	// Default sync window when the user has no stored connection settings.
	DefaultSyncWindowPastDays   = 30
	DefaultSyncWindowFutureDays = 90

	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)
