// Package catalogsync keeps a local product catalog consistent with an
// authoritative remote catalog. It wraps the reconciliation engine with a
// local store, the remote REST source, a session lock, event hooks and
// background synchronization.
//
// Example usage:
//
//	// Open the default SQLite catalog against the remote API
//	cs, err := catalogsync.New(
//	    catalogsync.WithSQLite("~/.catalogsync/catalogsync.sqlite"),
//	    catalogsync.WithRemoteURL("https://pos.example.com/api"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cs.Close()
//
//	// Register event hooks
//	cs.OnRecordLinked(func(o reconciler.Outcome) {
//	    log.Printf("local %s is remote %s", o.LocalID, o.RemoteID)
//	})
//
//	// Add a record and push it right away
//	rec, _, err := cs.Add(ctx, fields, catalogsync.WithImmediatePush(token))
//
//	// Run a pass and wait for its report
//	report, err := cs.Start(ctx, token).Wait(ctx)
package catalogsync

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/catalogsync/internal/lock"
	"github.com/agentstation/catalogsync/internal/remote"
	"github.com/agentstation/catalogsync/internal/store/memory"
	"github.com/agentstation/catalogsync/internal/store/sqlite"
	"github.com/agentstation/catalogsync/internal/transport"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconciler"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Compile-time interface checks to ensure proper implementation.
var (
	_ Client = (*client)(nil)
	_ Store  = (*memory.Store)(nil)
	_ Store  = (*sqlite.Store)(nil)
)

// Store is the local catalog used by a Client.
type Store interface {
	reconciler.LocalStore
	Get(ctx context.Context, localID records.LocalID) (records.CatalogRecord, error)
	Update(ctx context.Context, localID records.LocalID, fields records.Fields) (records.CatalogRecord, error)
	Conflicts(ctx context.Context) ([]records.Conflict, error)
	Close() error
}

// Catalog provides access to local records.
type Catalog interface {
	// Records returns every local record ordered by local id.
	Records(ctx context.Context) ([]records.CatalogRecord, error)

	// Record returns one local record.
	Record(ctx context.Context, id records.LocalID) (records.CatalogRecord, error)

	// Add validates and stores a new local record.
	Add(ctx context.Context, fields records.Fields, opts ...AddOption) (records.CatalogRecord, *reconciler.Outcome, error)

	// Edit replaces the fields of a local record.
	Edit(ctx context.Context, id records.LocalID, fields records.Fields) (records.CatalogRecord, error)

	// Conflicts returns preserved remote versions that lost a merge, newest first.
	Conflicts(ctx context.Context) ([]records.Conflict, error)
}

// Syncer runs reconciliation passes.
type Syncer interface {
	// Sync runs one pass and blocks until it finishes.
	Sync(ctx context.Context, credential string) (*reconciler.Report, error)

	// Start runs one pass in the background.
	Start(ctx context.Context, credential string) *Pending
}

// Client manages a local catalog kept in sync with a remote catalog.
type Client interface {
	Catalog
	Syncer
	AutoSyncer
	Hooks

	// Close stops background synchronization and closes the store.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options

	store      Store
	reconciler reconciler.Reconciler
	closers    []func() error

	// auto sync state
	mu         sync.Mutex
	syncTicker *time.Ticker
	syncCancel context.CancelFunc
	syncDone   chan struct{}

	hooks *hooks
}

// New creates a new Client with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{
		options: o,
		hooks:   newHooks(),
	}

	if err := c.openStore(); err != nil {
		return nil, err
	}

	src, err := c.remoteSource()
	if err != nil {
		_ = c.closeAll()
		return nil, err
	}

	locker, err := c.locker()
	if err != nil {
		_ = c.closeAll()
		return nil, err
	}

	recOpts := []reconciler.Option{
		reconciler.WithPushConcurrency(o.pushConcurrency),
		reconciler.WithAdoption(o.adoptByExternalCode),
	}
	if locker != nil {
		recOpts = append(recOpts, reconciler.WithLocker(locker))
	}
	if !o.preserveConflicts {
		recOpts = append(recOpts, reconciler.WithoutConflictPreservation())
	}

	if c.reconciler, err = reconciler.New(c.store, src, recOpts...); err != nil {
		_ = c.closeAll()
		return nil, err
	}

	logging.Debug().
		Str("store", o.storeKind()).
		Str("remote_url", o.remoteURL).
		Int("push_concurrency", o.pushConcurrency).
		Bool("adoption", o.adoptByExternalCode).
		Msg("Catalog client created")

	if o.autoSyncEnabled {
		if err := c.AutoSyncOn(o.autoSyncCredential); err != nil {
			_ = c.closeAll()
			return nil, errors.WrapResource("start", "auto-sync", "", err)
		}
	}

	return c, nil
}

func (c *client) openStore() error {
	switch {
	case c.options.store != nil:
		c.store = c.options.store
	case c.options.dbPath == "":
		c.store = memory.New()
	default:
		st, err := sqlite.Open(c.options.dbPath)
		if err != nil {
			return err
		}
		c.store = st
	}
	c.closers = append(c.closers, c.store.Close)
	return nil
}

func (c *client) remoteSource() (reconciler.RemoteSource, error) {
	if c.options.remote != nil {
		return c.options.remote, nil
	}
	httpClient := transport.New(&transport.BearerAuth{}, transport.WithTimeout(c.options.httpTimeout))
	return remote.New(c.options.remoteURL, remote.WithClient(httpClient))
}

// locker returns nil when the reconciler's own lock is sufficient.
func (c *client) locker() (reconciler.Locker, error) {
	o := c.options
	switch {
	case o.locker != nil:
		return o.locker, nil
	case o.redisAddress != "":
		ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		l, closeFn, err := lock.Dial(ctx, o.redisAddress, o.lockKey, o.lockTTL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, closeFn)
		return l, nil
	case o.dbPath != "":
		return lock.NewLocal(o.lockKey + ":" + o.dbPath), nil
	default:
		return nil, nil
	}
}

// Close stops background synchronization and closes the store.
func (c *client) Close() error {
	if err := c.AutoSyncOff(); err != nil {
		return err
	}
	return c.closeAll()
}

func (c *client) closeAll() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
