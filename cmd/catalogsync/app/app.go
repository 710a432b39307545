// Package app provides the application context and dependency management
// for the catalogsync CLI. It centralizes configuration, logging and the
// lifecycle of the catalog client.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the catalogsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// out overrides the command output writer (tests)
	out io.Writer

	// Client instance (lazy-initialized, singleton)
	mu     sync.Mutex
	client catalogsync.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Credential returns the bearer token for the remote catalog.
func (a *App) Credential() string {
	return a.config.Token
}

// AutoSyncInterval returns the interval between background passes.
func (a *App) AutoSyncInterval() time.Duration {
	return a.config.AutoSyncInterval
}

// Client returns the catalog client, creating it on first use from the
// validated configuration.
func (a *App) Client() (catalogsync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	client, err := catalogsync.New(a.config.ClientOptions()...)
	if err != nil {
		return nil, errors.WrapResource("create", "catalog client", a.config.DBPath, err)
	}
	a.logger.Debug().
		Str("db_path", a.config.DBPath).
		Str("remote_url", a.config.RemoteURL).
		Str("lock_backend", a.config.LockBackend).
		Msg("Catalog client ready")

	a.client = client
	return client, nil
}

// Shutdown closes the client if one was created.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close catalog client during shutdown")
		return err
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(client catalogsync.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}

// WithOutput redirects command output (useful for testing).
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
