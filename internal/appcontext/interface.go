// Package appcontext provides the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete App type so they can be tested with Mock.
package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
)

// Interface defines the application context that commands need.
type Interface interface {
	// Client returns the catalog client, creating it lazily if needed.
	Client() (catalogsync.Client, error)

	// Credential returns the bearer token for the remote catalog.
	Credential() string

	// AutoSyncInterval returns the configured interval between background passes.
	AutoSyncInterval() time.Duration

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
