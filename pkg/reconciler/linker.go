package reconciler

import (
	"context"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/records"
)

// linker drives create-on-remote then link-locally for unlinked records.
// Creation requests run concurrently; linking writes are serialized.
type linker struct {
	store       LocalStore
	remote      RemoteSource
	credential  string
	prefix      string
	concurrency int

	writeMu sync.Mutex
}

// idempotencyKey is stable for a local record across passes and processes
// sharing the same store.
func (l *linker) idempotencyKey(id records.LocalID) string {
	return l.prefix + ":" + id.String()
}

// pushAll pushes recs and returns their outcomes in ascending local id order.
func (l *linker) pushAll(ctx context.Context, recs []records.CatalogRecord) []Outcome {
	if len(recs) == 0 {
		return nil
	}

	p := pool.NewWithResults[Outcome]().WithMaxGoroutines(l.concurrency)
	for _, rec := range recs {
		p.Go(func() Outcome {
			return l.push(ctx, rec)
		})
	}
	outcomes := p.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return *outcomes[i].LocalID < *outcomes[j].LocalID
	})
	return outcomes
}

func (l *linker) push(ctx context.Context, rec records.CatalogRecord) Outcome {
	ctx = logging.WithLocalID(ctx, int64(rec.LocalID))
	logger := logging.FromContext(ctx)

	remoteID, err := l.remote.CreateRecord(ctx, l.credential, rec.Fields, l.idempotencyKey(rec.LocalID))
	if err != nil {
		logger.Warn().Err(err).Str("cause", errors.Kind(err)).Msg("Push failed")
		return failed(rec.LocalID, nil, err)
	}

	l.writeMu.Lock()
	linked, err := l.store.LinkRemoteID(ctx, rec.LocalID, remoteID)
	l.writeMu.Unlock()

	if err != nil {
		logger.Error().Err(err).Int64("remote_id", int64(remoteID)).Msg("Remote record created but not linked")
		o := failed(rec.LocalID, &remoteID, err)
		o.Orphaned = !errors.Is(err, errors.ErrConstraint)
		return o
	}

	if linked.RemoteID == nil || *linked.RemoteID != remoteID {
		// Another writer linked the record first; the new remote record has
		// no local counterpart.
		err := errors.NewResourceError("link", "record", rec.LocalID.String(), errors.ErrAlreadyLinked)
		logger.Warn().Int64("remote_id", int64(remoteID)).Msg("Record already linked to another remote id")
		o := failed(rec.LocalID, &remoteID, err)
		o.Orphaned = true
		return o
	}

	logger.Debug().Int64("remote_id", int64(remoteID)).Msg("Pushed and linked")
	return Outcome{
		Kind:     OutcomePushedAndLinked,
		LocalID:  localRef(rec.LocalID),
		RemoteID: remoteRef(remoteID),
	}
}

func failed(localID records.LocalID, remoteID *records.RemoteID, err error) Outcome {
	return Outcome{
		Kind:     OutcomePushFailed,
		LocalID:  localRef(localID),
		RemoteID: remoteID,
		Cause:    errors.Kind(err),
		Reason:   err.Error(),
		Err:      err,
	}
}
