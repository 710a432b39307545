package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/pkg/constants"
)

// Mock provides a mock implementation of Interface for testing.
// Fields left empty fall back to defaults.
type Mock struct {
	ClientFunc func() (catalogsync.Client, error)
	Token      string
	Interval   time.Duration
	Format     string
	LoggerFunc func() *zerolog.Logger
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client() (catalogsync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc()
	}
	return nil, nil
}

// Credential returns the mock token.
func (m *Mock) Credential() string {
	return m.Token
}

// AutoSyncInterval returns the mock interval or the default.
func (m *Mock) AutoSyncInterval() time.Duration {
	if m.Interval > 0 {
		return m.Interval
	}
	return constants.DefaultAutoSyncInterval
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the mock format or json.
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "json"
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
