// Package logging provides structured logging for catalogsync on zerolog.
//
// A process-wide default logger serves code without a context. Reconciliation
// passes carry a child logger in their context, tagged with the session id
// and, per item, the local or remote record id:
//
//	ctx = logging.WithSession(ctx, sessionID)
//	ctx = logging.WithRemoteID(ctx, 7)
//	logging.FromContext(ctx).Debug().Msg("Materialized remote record")
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = NewLoggerFromConfig(&Config{
	Level:      envOr("CATALOGSYNC_LOG_LEVEL", "info"),
	Format:     envOr("CATALOGSYNC_LOG_FORMAT", "auto"),
	Output:     "stderr",
	TimeFormat: "kitchen",
	NoColor:    os.Getenv("NO_COLOR") != "",
})

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger and zerolog's global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts an info event on the default logger.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts an error event on the default logger.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Err starts an event for err: error level when err is non-nil, info otherwise.
func Err(err error) *zerolog.Event {
	return defaultLogger.Err(err)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
