// Package reconciler runs reconciliation passes between a local catalog store
// and an authoritative remote catalog. A pass pulls both snapshots, merges
// remote changes into the local store by last-writer-wins, and pushes local
// records the remote has never seen, linking each to its new remote id.
package reconciler

import (
	"context"
	"sync/atomic"

	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/differ"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

// LocalStore is the local catalog collaborator.
type LocalStore interface {
	// FetchAll returns every local record.
	FetchAll(ctx context.Context) ([]records.CatalogRecord, error)

	// Insert stores a new record and assigns its local id. Zero timestamps
	// are assigned from the store clock.
	Insert(ctx context.Context, rec records.NewRecord) (records.CatalogRecord, error)

	// ApplyRemoteUpdate overwrites the fields of the record linked to
	// remoteID and sets its updated_at to remoteUpdatedAt. When expected is
	// non-zero and the stored updated_at differs from it, the write is
	// refused with errors.ErrStale.
	ApplyRemoteUpdate(ctx context.Context, remoteID records.RemoteID, fields records.Fields, remoteUpdatedAt, expected utc.Time) (records.CatalogRecord, error)

	// LinkRemoteID sets the remote id of an unlinked record. It returns the
	// stored record unchanged when the record is already linked.
	LinkRemoteID(ctx context.Context, localID records.LocalID, remoteID records.RemoteID) (records.CatalogRecord, error)
}

// RemoteSource is the remote catalog collaborator.
type RemoteSource interface {
	// FetchCatalog returns the full remote snapshot.
	FetchCatalog(ctx context.Context, credential string) ([]records.RemoteRecord, error)

	// CreateRecord submits fields as a new remote record and returns the
	// assigned remote id. idempotencyKey is stable per local record.
	CreateRecord(ctx context.Context, credential string, fields records.Fields, idempotencyKey string) (records.RemoteID, error)
}

// Locker grants exclusive access to one reconciliation pass.
type Locker interface {
	// TryLock acquires the lock without waiting. It fails with
	// errors.ErrSessionBusy when another pass holds it.
	TryLock(ctx context.Context) (func(), error)
}

// ConflictSink receives remote versions that lost a merge.
type ConflictSink interface {
	RecordConflict(ctx context.Context, conflict records.Conflict) error
}

// InstanceIdentifier is implemented by stores that carry a durable instance
// id, used to scope push idempotency keys.
type InstanceIdentifier interface {
	InstanceID() string
}

// Reconciler runs reconciliation passes.
type Reconciler interface {
	// Run executes one full pass. It returns errors.ErrSessionBusy with a
	// nil report when another pass is running, and the partial report with
	// a *errors.FatalError when the pass aborts.
	Run(ctx context.Context, credential string) (*Report, error)

	// Push creates an unlinked record on the remote and links it, outside
	// of a full pass. It fails with errors.ErrSessionBusy while a pass runs.
	Push(ctx context.Context, credential string, rec records.CatalogRecord) (*Outcome, error)

	// Running reports whether this reconciler is executing a pass.
	Running() bool

	// State is StateRunning while a pass executes and StateIdle otherwise.
	State() State
}

type reconciler struct {
	store   LocalStore
	remote  RemoteSource
	differ  differ.Differ
	options *options
	running atomic.Bool
}

// New creates a Reconciler over store and remote.
func New(store LocalStore, remote RemoteSource, opts ...Option) (Reconciler, error) {
	if store == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if remote == nil {
		return nil, &errors.ValidationError{Field: "remote", Message: "cannot be nil"}
	}

	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	if options.idempotencyPrefix == "" {
		options.idempotencyPrefix = defaultIdempotencyPrefix
		if id, ok := store.(InstanceIdentifier); ok && id.InstanceID() != "" {
			options.idempotencyPrefix = id.InstanceID()
		}
	}
	if options.conflicts == nil {
		if sink, ok := store.(ConflictSink); ok && options.preserveConflicts {
			options.conflicts = sink
		}
	}

	return &reconciler{
		store:   store,
		remote:  remote,
		differ:  differ.New(),
		options: options,
	}, nil
}

// Running reports whether a pass is in progress on this reconciler.
func (r *reconciler) Running() bool {
	return r.running.Load()
}

// State returns the lifecycle state of this reconciler.
func (r *reconciler) State() State {
	if r.running.Load() {
		return StateRunning
	}
	return StateIdle
}
