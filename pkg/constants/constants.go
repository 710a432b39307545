// Package constants provides shared constants used throughout the catalogsync codebase.
// This includes timeouts, limits, file permissions, and other configuration values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the remote catalog
	DefaultHTTPTimeout = 30 * time.Second

	// SyncContextTimeout is the timeout applied to each automatic reconciliation pass
	SyncContextTimeout = 5 * time.Minute

	// DefaultAutoSyncInterval is the default interval between automatic passes
	DefaultAutoSyncInterval = 15 * time.Minute

	// DefaultLockTTL is how long a distributed session lock is held before it expires
	DefaultLockTTL = 10 * time.Minute

	// SQLiteBusyTimeout is the SQLite busy_timeout in milliseconds
	SQLiteBusyTimeout = 5000

	// ShutdownTimeout bounds graceful shutdown of the CLI
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// DefaultPushConcurrency is the number of creation requests in flight during one pass
	DefaultPushConcurrency = 4

	// MaxPushConcurrency caps the configurable push concurrency
	MaxPushConcurrency = 32

	// MaxNameLength is the maximum allowed length for record names
	MaxNameLength = 256

	// MaxDescriptionLength is the maximum allowed length for descriptions
	MaxDescriptionLength = 4096

	// MaxExternalCodeLength is the maximum allowed length for external codes (SKU)
	MaxExternalCodeLength = 64

	// MaxErrorBodyBytes limits how much of a failed response body is kept in errors
	MaxErrorBodyBytes = 4096

	// MaxResponseBytes limits how much of any remote response body is read
	MaxResponseBytes = 32 << 20
)

// Default values
const (
	// DefaultRemoteURL is the base URL of the remote catalog API
	DefaultRemoteURL = "http://localhost:8000/api"

	// DefaultDatabaseName is the file name of the local catalog database
	DefaultDatabaseName = "catalogsync.sqlite"

	// DefaultLockKey is the Redis key guarding reconciliation passes
	DefaultLockKey = "catalogsync:reconcile"

	// IdempotencyKeyHeader carries the push idempotency key to the remote catalog
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Path constants
const (
	// DefaultDataPath is the default directory for the local catalog database
	DefaultDataPath = "~/.catalogsync"

	// ConfigFileName is the base name of the optional config file in $HOME
	ConfigFileName = ".catalogsync"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"

	// TimeFormatStorage is the timestamp layout persisted in SQLite
	TimeFormatStorage = time.RFC3339Nano
)
