package reconciler

import (
	"context"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/pkg/differ"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/index"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Stages reported by an aborted pass.
const (
	StageFetchRemote = "fetch-remote"
	StageFetchLocal  = "fetch-local"
	StageIndex       = "index"
	StageApply       = "apply"
)

// session holds the state of one pass.
type session struct {
	*reconciler

	id         string
	credential string
	report     *Report
	logger     *zerolog.Logger
	index      *index.Index

	// adopted holds local records linked by external code during this pass.
	adopted map[records.LocalID]bool
}

// Run executes one reconciliation pass.
func (r *reconciler) Run(ctx context.Context, credential string) (*Report, error) {
	unlock, err := r.options.locker.TryLock(ctx)
	if err != nil {
		if errors.IsBusy(err) {
			return nil, err
		}
		return nil, errors.WrapResource("acquire", "session lock", "", err)
	}
	defer unlock()

	r.running.Store(true)
	defer r.running.Store(false)

	s := &session{
		reconciler: r,
		id:         uuid.NewString(),
		credential: credential,
		adopted:    make(map[records.LocalID]bool),
	}
	ctx = logging.WithSession(ctx, s.id)
	s.logger = logging.FromContext(ctx)
	s.report = newReport(s.id, r.options.clock())

	s.logger.Info().Str("strategy", r.options.strategy.Type().String()).Msg("Reconciliation started")

	stage, err := s.run(ctx)
	s.report.FinishedAt = r.options.clock()

	if err != nil {
		s.report.State = StateAborted
		s.report.Cause = err
		s.logger.Error().
			Err(err).
			Str("stage", stage).
			Str("cause", errors.Kind(err)).
			Msg("Reconciliation aborted")
		return s.report, errors.NewFatalError(s.id, stage, err)
	}

	s.report.State = StateCompleted
	s.logger.Info().
		Int("created", s.report.Created).
		Int("updated", s.report.Updated).
		Int("unchanged", s.report.Unchanged).
		Int("conflicted", s.report.Conflicted).
		Int("pushed", s.report.Pushed).
		Int("push_failed", s.report.PushFailed).
		Dur("duration", s.report.Duration()).
		Msg("Reconciliation completed")
	return s.report, nil
}

// Push pushes a single unlinked record outside of a full pass, holding the
// same lock as Run.
func (r *reconciler) Push(ctx context.Context, credential string, rec records.CatalogRecord) (*Outcome, error) {
	if rec.Linked() {
		return nil, errors.NewValidationError("remote_id", rec.RemoteID.String(), "record is already linked")
	}

	unlock, err := r.options.locker.TryLock(ctx)
	if err != nil {
		if errors.IsBusy(err) {
			return nil, err
		}
		return nil, errors.WrapResource("acquire", "session lock", "", err)
	}
	defer unlock()

	outcome := r.linker(credential).push(ctx, rec)
	return &outcome, nil
}

func (r *reconciler) linker(credential string) *linker {
	return &linker{
		store:       r.store,
		remote:      r.remote,
		credential:  credential,
		prefix:      r.options.idempotencyPrefix,
		concurrency: r.options.pushConcurrency,
	}
}

func (s *session) run(ctx context.Context) (string, error) {
	remotes, err := s.remote.FetchCatalog(ctx, s.credential)
	if err != nil {
		return StageFetchRemote, err
	}
	if err := checkRemoteSnapshot(remotes); err != nil {
		return StageFetchRemote, err
	}

	locals, err := s.store.FetchAll(ctx)
	if err != nil {
		return StageFetchLocal, err
	}

	s.index, err = index.Build(locals)
	if err != nil {
		return StageIndex, err
	}
	s.logger.Debug().
		Int("remote_count", len(remotes)).
		Int("local_count", s.index.Len()).
		Int("linked_count", s.index.LinkedCount()).
		Msg("Snapshots indexed")

	for _, remote := range remotes {
		if err := s.processRemote(ctx, remote); err != nil {
			return StageApply, err
		}
	}

	var pending []records.CatalogRecord
	for _, rec := range s.index.Unlinked() {
		if !s.adopted[rec.LocalID] {
			pending = append(pending, rec)
		}
	}
	for _, o := range s.linker(s.credential).pushAll(ctx, pending) {
		s.report.add(o)
	}

	return "", nil
}

// checkRemoteSnapshot rejects a remote snapshot listing one remote id twice
// before any local mutation happens.
func checkRemoteSnapshot(remotes []records.RemoteRecord) error {
	seen := make(map[records.RemoteID]bool, len(remotes))
	for _, remote := range remotes {
		if remote.RemoteID == 0 {
			return errors.NewParseError("json", "remote catalog", "record without id", nil)
		}
		if seen[remote.RemoteID] {
			return errors.NewParseError("json", "remote catalog", "duplicate remote id "+remote.RemoteID.String(), nil)
		}
		seen[remote.RemoteID] = true
	}
	return nil
}

func (s *session) processRemote(ctx context.Context, remote records.RemoteRecord) error {
	ctx = logging.WithRemoteID(ctx, int64(remote.RemoteID))

	if local, ok := s.index.Lookup(remote.RemoteID); ok {
		expected, _ := s.index.Snapshot(local.LocalID)
		return s.merge(ctx, local, remote, expected)
	}

	if s.options.adoption && remote.ExternalCode != nil {
		adopted, ok, err := s.adopt(ctx, remote)
		if err != nil {
			return err
		}
		if ok {
			return s.merge(ctx, adopted, remote, adopted.UpdatedAt)
		}
	}

	created, err := s.store.Insert(ctx, records.FromRemote(remote))
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debug().Int64("local_id", int64(created.LocalID)).Msg("Created local record")
	s.report.add(Outcome{
		Kind:     OutcomeCreated,
		LocalID:  localRef(created.LocalID),
		RemoteID: remoteRef(remote.RemoteID),
	})
	return nil
}

// adopt links remote to the single unlinked local record sharing its
// external code.
func (s *session) adopt(ctx context.Context, remote records.RemoteRecord) (records.CatalogRecord, bool, error) {
	candidate, ok := s.index.UnlinkedByExternalCode(*remote.ExternalCode)
	if !ok || s.adopted[candidate.LocalID] {
		return records.CatalogRecord{}, false, nil
	}

	linked, err := s.store.LinkRemoteID(ctx, candidate.LocalID, remote.RemoteID)
	if err != nil {
		return records.CatalogRecord{}, false, err
	}
	if linked.RemoteID == nil || *linked.RemoteID != remote.RemoteID {
		return records.CatalogRecord{}, false, nil
	}

	s.adopted[candidate.LocalID] = true
	logging.FromContext(ctx).Info().
		Int64("local_id", int64(candidate.LocalID)).
		Str("external_code", *remote.ExternalCode).
		Msg("Adopted local record by external code")
	s.report.add(Outcome{
		Kind:     OutcomeAdopted,
		LocalID:  localRef(candidate.LocalID),
		RemoteID: remoteRef(remote.RemoteID),
	})
	return linked, true, nil
}

// merge resolves a linked pair. expected is the local updated_at observed
// when the pair was read.
func (s *session) merge(ctx context.Context, local records.CatalogRecord, remote records.RemoteRecord, expected utc.Time) error {
	diff := s.differ.Records(local, remote)
	if diff.Equal() {
		s.report.add(Outcome{
			Kind:     OutcomeUnchanged,
			LocalID:  localRef(local.LocalID),
			RemoteID: remoteRef(remote.RemoteID),
		})
		return nil
	}

	logger := logging.FromContext(ctx)

	switch s.options.strategy.Resolve(local.UpdatedAt, remote.UpdatedAt) {
	case ApplyRemote:
		_, err := s.store.ApplyRemoteUpdate(ctx, remote.RemoteID, remote.Fields, remote.UpdatedAt, expected)
		if errors.IsStale(err) {
			logger.Warn().Int64("local_id", int64(local.LocalID)).Msg("Local record changed during pass, update skipped")
			s.report.add(Outcome{
				Kind:     OutcomeUpdateSkipped,
				LocalID:  localRef(local.LocalID),
				RemoteID: remoteRef(remote.RemoteID),
				Fields:   diff.FieldNames(),
				Cause:    errors.Kind(err),
				Reason:   err.Error(),
				Err:      err,
			})
			return nil
		}
		if err != nil {
			return err
		}
		logger.Debug().Strs("fields", diff.FieldNames()).Msg("Applied remote update")
		s.report.add(Outcome{
			Kind:     OutcomeUpdated,
			LocalID:  localRef(local.LocalID),
			RemoteID: remoteRef(remote.RemoteID),
			Fields:   diff.FieldNames(),
		})

	default:
		logger.Debug().Strs("fields", diff.FieldNames()).Msg("Local record wins conflict")
		s.preserve(ctx, local, remote, diff)
		s.report.add(Outcome{
			Kind:     OutcomeConflictLocalWins,
			LocalID:  localRef(local.LocalID),
			RemoteID: remoteRef(remote.RemoteID),
			Fields:   diff.FieldNames(),
		})
	}
	return nil
}

// preserve hands the losing remote version to the conflict sink. Sink
// failures never affect the pass.
func (s *session) preserve(ctx context.Context, local records.CatalogRecord, remote records.RemoteRecord, diff *differ.Diff) {
	if s.options.conflicts == nil {
		return
	}
	err := s.options.conflicts.RecordConflict(ctx, records.Conflict{
		SessionID:      s.id,
		LocalID:        local.LocalID,
		LocalUpdatedAt: local.UpdatedAt,
		Remote:         remote,
		Fields:         diff.FieldNames(),
		DetectedAt:     s.options.clock(),
	})
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to preserve conflicting remote version")
	}
}
