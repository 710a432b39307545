package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	sessionIDKey
)

// WithLogger returns ctx carrying logger. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger carried by ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithSession tags ctx and its logger with a reconciliation session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("session_id", sessionID)
	})
}

// SessionID returns the session id set by WithSession.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// WithLocalID adds the local record id to the context logger.
func WithLocalID(ctx context.Context, localID int64) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Int64("local_id", localID)
	})
}

// WithRemoteID adds the remote record id to the context logger.
func WithRemoteID(ctx context.Context, remoteID int64) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Int64("remote_id", remoteID)
	})
}

// WithOperation adds the client operation name to the context logger.
func WithOperation(ctx context.Context, operation string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("operation", operation)
	})
}

// WithError adds err to the context logger. A nil err returns ctx unchanged.
func WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Err(err)
	})
}

func with(ctx context.Context, add func(zerolog.Context) zerolog.Context) context.Context {
	logger := add(FromContext(ctx).With()).Logger()
	return WithLogger(ctx, &logger)
}
