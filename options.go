package catalogsync

import (
	"time"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/reconciler"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the configuration for a Client.
type options struct {
	// local store
	store  Store
	dbPath string

	// remote source
	remote      reconciler.RemoteSource
	remoteURL   string
	httpTimeout time.Duration

	// session lock
	locker       reconciler.Locker
	redisAddress string
	lockKey      string
	lockTTL      time.Duration

	// reconciliation
	pushConcurrency     int
	adoptByExternalCode bool
	preserveConflicts   bool

	// auto sync
	autoSyncEnabled    bool
	autoSyncInterval   time.Duration
	autoSyncCredential string
}

func defaults() *options {
	return &options{
		remoteURL:         constants.DefaultRemoteURL,
		httpTimeout:       constants.DefaultHTTPTimeout,
		lockKey:           constants.DefaultLockKey,
		lockTTL:           constants.DefaultLockTTL,
		pushConcurrency:   constants.DefaultPushConcurrency,
		preserveConflicts: true,
		autoSyncInterval:  constants.DefaultAutoSyncInterval,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *options) storeKind() string {
	switch {
	case o.store != nil:
		return "custom"
	case o.dbPath == "":
		return "memory"
	default:
		return "sqlite"
	}
}

// WithSQLite stores the local catalog in the SQLite database at path.
func WithSQLite(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.NewValidationError("db_path", path, "is required")
		}
		o.dbPath = path
		return nil
	}
}

// WithStore uses a caller-supplied local store. The client closes it on Close.
func WithStore(store Store) Option {
	return func(o *options) error {
		if store == nil {
			return errors.NewValidationError("store", nil, "is required")
		}
		o.store = store
		return nil
	}
}

// WithRemoteURL sets the base URL of the remote catalog API.
func WithRemoteURL(url string) Option {
	return func(o *options) error {
		o.remoteURL = url
		return nil
	}
}

// WithRemoteSource uses a caller-supplied remote source instead of the REST API.
func WithRemoteSource(src reconciler.RemoteSource) Option {
	return func(o *options) error {
		if src == nil {
			return errors.NewValidationError("remote", nil, "is required")
		}
		o.remote = src
		return nil
	}
}

// WithHTTPTimeout bounds each request to the remote catalog API.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout <= 0 {
			return errors.NewValidationError("http_timeout", timeout, "must be positive")
		}
		o.httpTimeout = timeout
		return nil
	}
}

// WithLocker sets the session lock.
func WithLocker(locker reconciler.Locker) Option {
	return func(o *options) error {
		o.locker = locker
		return nil
	}
}

// WithRedisLock guards passes with a Redis lock at addr so that several
// processes can share one local database.
func WithRedisLock(addr, key string, ttl time.Duration) Option {
	return func(o *options) error {
		if addr == "" {
			return errors.NewValidationError("redis_address", addr, "is required")
		}
		o.redisAddress = addr
		if key != "" {
			o.lockKey = key
		}
		if ttl > 0 {
			o.lockTTL = ttl
		}
		return nil
	}
}

// WithPushConcurrency sets how many records are pushed at once.
func WithPushConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxPushConcurrency {
			return errors.NewValidationError("push_concurrency", n, "must be between 1 and 32")
		}
		o.pushConcurrency = n
		return nil
	}
}

// WithAdoption configures whether unlinked local records are linked to
// unreferenced remote records sharing their external code.
func WithAdoption(enabled bool) Option {
	return func(o *options) error {
		o.adoptByExternalCode = enabled
		return nil
	}
}

// WithConflictPreservation configures whether remote versions that lose a
// merge are kept in the store.
func WithConflictPreservation(enabled bool) Option {
	return func(o *options) error {
		o.preserveConflicts = enabled
		return nil
	}
}

// WithAutoSync starts background passes with credential when the client
// is created.
func WithAutoSync(credential string) Option {
	return func(o *options) error {
		o.autoSyncEnabled = true
		o.autoSyncCredential = credential
		return nil
	}
}

// WithAutoSyncInterval configures how often background passes run.
func WithAutoSyncInterval(interval time.Duration) Option {
	return func(o *options) error {
		o.autoSyncInterval = interval
		return nil
	}
}

// AddOption configures a single Add call.
type AddOption func(*addOptions)

type addOptions struct {
	push       bool
	credential string
}

// WithImmediatePush pushes the new record to the remote right after it is
// stored instead of waiting for the next pass.
func WithImmediatePush(credential string) AddOption {
	return func(o *addOptions) {
		o.push = true
		o.credential = credential
	}
}
