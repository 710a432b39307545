package reconciler

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
)

const defaultIdempotencyPrefix = "catalogsync"

type options struct {
	strategy          Strategy
	locker            Locker
	conflicts         ConflictSink
	preserveConflicts bool
	pushConcurrency   int
	adoption          bool
	idempotencyPrefix string
	clock             func() utc.Time
}

func defaultOptions() *options {
	return &options{
		strategy:          LastWriterWins{},
		locker:            newMutexLocker(),
		preserveConflicts: true,
		pushConcurrency:   constants.DefaultPushConcurrency,
		clock:             utc.Now,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithStrategy sets the merge strategy.
func WithStrategy(strategy Strategy) Option {
	return func(o *options) error {
		if strategy == nil {
			return &errors.ValidationError{
				Field:   "strategy",
				Message: "cannot be nil",
			}
		}
		o.strategy = strategy
		return nil
	}
}

// WithLocker sets the lock guarding passes. Reconcilers that share a local
// store must share a Locker.
func WithLocker(locker Locker) Option {
	return func(o *options) error {
		if locker == nil {
			return &errors.ValidationError{
				Field:   "locker",
				Message: "cannot be nil",
			}
		}
		o.locker = locker
		return nil
	}
}

// WithConflictSink sets where losing remote versions are preserved. Without
// it, a store that implements ConflictSink is used.
func WithConflictSink(sink ConflictSink) Option {
	return func(o *options) error {
		o.conflicts = sink
		o.preserveConflicts = sink != nil
		return nil
	}
}

// WithoutConflictPreservation drops losing remote versions.
func WithoutConflictPreservation() Option {
	return func(o *options) error {
		o.conflicts = nil
		o.preserveConflicts = false
		return nil
	}
}

// WithPushConcurrency bounds the creation requests in flight during a pass.
func WithPushConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxPushConcurrency {
			return errors.NewValidationError("push_concurrency", n, "must be between 1 and 32")
		}
		o.pushConcurrency = n
		return nil
	}
}

// WithAdoption enables linking an unreferenced remote record to the single
// unlinked local record that shares its external code.
func WithAdoption(enabled bool) Option {
	return func(o *options) error {
		o.adoption = enabled
		return nil
	}
}

// WithIdempotencyPrefix sets the scope of push idempotency keys. It
// defaults to the store instance id.
func WithIdempotencyPrefix(prefix string) Option {
	return func(o *options) error {
		o.idempotencyPrefix = prefix
		return nil
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(clock func() utc.Time) Option {
	return func(o *options) error {
		if clock == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		o.clock = clock
		return nil
	}
}
