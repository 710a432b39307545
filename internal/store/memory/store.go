// Package memory provides an in-memory local catalog store for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Store is a concurrency-safe in-memory catalog. It enforces the same
// remote id uniqueness as the SQLite store.
type Store struct {
	mu        sync.RWMutex
	records   map[records.LocalID]records.CatalogRecord
	byRemote  map[records.RemoteID]records.LocalID
	conflicts []records.Conflict
	nextID    records.LocalID
	clock     func() utc.Time
	instance  string
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for local timestamps.
func WithClock(clock func() utc.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithInstanceID sets the store instance id.
func WithInstanceID(id string) Option {
	return func(s *Store) {
		s.instance = id
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records:  make(map[records.LocalID]records.CatalogRecord),
		byRemote: make(map[records.RemoteID]records.LocalID),
		nextID:   1,
		clock:    utc.Now,
		instance: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InstanceID returns the id scoping push idempotency keys.
func (s *Store) InstanceID() string {
	return s.instance
}

// FetchAll returns every record in ascending local id order.
func (s *Store) FetchAll(_ context.Context) ([]records.CatalogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]records.CatalogRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalID < out[j].LocalID })
	return out, nil
}

// Get returns the record with localID.
func (s *Store) Get(_ context.Context, localID records.LocalID) (records.CatalogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[localID]
	if !ok {
		return records.CatalogRecord{}, errors.NewNotFoundError("record", localID.String())
	}
	return rec.Clone(), nil
}

// Insert stores rec under a new local id.
func (s *Store) Insert(_ context.Context, rec records.NewRecord) (records.CatalogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.RemoteID != nil {
		if holder, taken := s.byRemote[*rec.RemoteID]; taken {
			return records.CatalogRecord{}, errors.NewConstraintError("unique_remote_id", rec.RemoteID.String(), []int64{int64(holder)}, nil)
		}
	}

	now := s.clock()
	stored := records.CatalogRecord{
		LocalID:   s.nextID,
		Fields:    rec.Fields.Clone(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	if rec.RemoteID != nil {
		stored.RemoteID = records.RemoteIDPtr(*rec.RemoteID)
		s.byRemote[*rec.RemoteID] = stored.LocalID
	}

	s.records[stored.LocalID] = stored
	s.nextID++
	return stored.Clone(), nil
}

// Update applies a local edit and bumps updated_at. The remote id is never
// touched.
func (s *Store) Update(_ context.Context, localID records.LocalID, fields records.Fields) (records.CatalogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[localID]
	if !ok {
		return records.CatalogRecord{}, errors.NewNotFoundError("record", localID.String())
	}
	rec.Fields = fields.Clone()
	rec.UpdatedAt = s.clock()
	s.records[localID] = rec
	return rec.Clone(), nil
}

// ApplyRemoteUpdate overwrites the record linked to remoteID.
func (s *Store) ApplyRemoteUpdate(_ context.Context, remoteID records.RemoteID, fields records.Fields, remoteUpdatedAt, expected utc.Time) (records.CatalogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	localID, ok := s.byRemote[remoteID]
	if !ok {
		return records.CatalogRecord{}, errors.NewNotFoundError("record with remote id", remoteID.String())
	}
	rec := s.records[localID]
	if !expected.IsZero() && !rec.UpdatedAt.Time.Equal(expected.Time) {
		return rec.Clone(), errors.WrapResource("update", "record", localID.String(), errors.ErrStale)
	}

	rec.Fields = fields.Clone()
	rec.UpdatedAt = remoteUpdatedAt
	s.records[localID] = rec
	return rec.Clone(), nil
}

// LinkRemoteID links an unlinked record. Linking an already linked record
// returns it unchanged.
func (s *Store) LinkRemoteID(_ context.Context, localID records.LocalID, remoteID records.RemoteID) (records.CatalogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[localID]
	if !ok {
		return records.CatalogRecord{}, errors.NewNotFoundError("record", localID.String())
	}
	if rec.RemoteID != nil {
		return rec.Clone(), nil
	}
	if holder, taken := s.byRemote[remoteID]; taken {
		return records.CatalogRecord{}, errors.NewConstraintError("unique_remote_id", remoteID.String(), []int64{int64(holder), int64(localID)}, nil)
	}

	rec.RemoteID = records.RemoteIDPtr(remoteID)
	s.records[localID] = rec
	s.byRemote[remoteID] = localID
	return rec.Clone(), nil
}

// RecordConflict keeps a losing remote version once per local record.
func (s *Store) RecordConflict(_ context.Context, conflict records.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kept := range s.conflicts {
		if kept.LocalID == conflict.LocalID &&
			kept.Remote.RemoteID == conflict.Remote.RemoteID &&
			kept.Remote.UpdatedAt.Time.Equal(conflict.Remote.UpdatedAt.Time) {
			return nil
		}
	}

	conflict.ID = int64(len(s.conflicts) + 1)
	conflict.Fields = append([]string(nil), conflict.Fields...)
	s.conflicts = append(s.conflicts, conflict)
	return nil
}

// Conflicts returns preserved conflicts, newest first.
func (s *Store) Conflicts(_ context.Context) ([]records.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]records.Conflict, len(s.conflicts))
	for i, c := range s.conflicts {
		out[len(s.conflicts)-1-i] = c
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
