package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/store/memory"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

func fixedClock(ts time.Time) func() utc.Time {
	return func() utc.Time { return utc.New(ts) }
}

func TestInsertAssignsIDsAndTimestamps(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := memory.New(memory.WithClock(fixedClock(now)))
	ctx := context.Background()

	a, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "A"}})
	require.NoError(t, err)
	b, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "B"}})
	require.NoError(t, err)

	assert.Equal(t, records.LocalID(1), a.LocalID)
	assert.Equal(t, records.LocalID(2), b.LocalID)
	assert.True(t, a.UpdatedAt.Time.Equal(now))
	assert.Nil(t, a.RemoteID)
}

func TestInsertDuplicateRemoteID(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "A"}, RemoteID: records.RemoteIDPtr(7)})
	require.NoError(t, err)

	_, err = s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "B"}, RemoteID: records.RemoteIDPtr(7)})
	assert.ErrorIs(t, err, errors.ErrConstraint)
}

func TestLinkIsIdempotent(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "A"}})
	require.NoError(t, err)

	first, err := s.LinkRemoteID(ctx, rec.LocalID, 99)
	require.NoError(t, err)
	second, err := s.LinkRemoteID(ctx, rec.LocalID, 99)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	third, err := s.LinkRemoteID(ctx, rec.LocalID, 100)
	require.NoError(t, err)
	assert.Equal(t, records.RemoteID(99), *third.RemoteID, "remote id is assigned at most once")

	_, err = s.LinkRemoteID(ctx, 42, 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestApplyRemoteUpdateStale(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := t0
	s := memory.New(memory.WithClock(func() utc.Time { return utc.New(clock) }))
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "A"}, RemoteID: records.RemoteIDPtr(5)})
	require.NoError(t, err)

	clock = t0.Add(time.Hour)
	_, err = s.Update(ctx, rec.LocalID, records.Fields{Name: "edited"})
	require.NoError(t, err)

	remoteAt := utc.New(t0.Add(2 * time.Hour))
	_, err = s.ApplyRemoteUpdate(ctx, 5, records.Fields{Name: "remote"}, remoteAt, rec.UpdatedAt)
	assert.True(t, errors.IsStale(err))

	got, err := s.Get(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Name)

	updated, err := s.ApplyRemoteUpdate(ctx, 5, records.Fields{Name: "remote"}, remoteAt, got.UpdatedAt)
	require.NoError(t, err)
	assert.Equal(t, "remote", updated.Name)
	assert.True(t, updated.UpdatedAt.Time.Equal(remoteAt.Time))
}

func TestConflictsNewestFirst(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.RecordConflict(ctx, records.Conflict{LocalID: 1}))
	require.NoError(t, s.RecordConflict(ctx, records.Conflict{LocalID: 2}))

	conflicts, err := s.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, records.LocalID(2), conflicts[0].LocalID)
	assert.Equal(t, int64(2), conflicts[0].ID)
}

func TestConflictKeptOncePerRemoteVersion(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	version := records.RemoteRecord{RemoteID: 7, UpdatedAt: utc.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))}

	require.NoError(t, s.RecordConflict(ctx, records.Conflict{SessionID: "a", LocalID: 1, Remote: version}))
	require.NoError(t, s.RecordConflict(ctx, records.Conflict{SessionID: "b", LocalID: 1, Remote: version}))

	newer := version
	newer.UpdatedAt = utc.New(version.UpdatedAt.Time.Add(time.Hour))
	require.NoError(t, s.RecordConflict(ctx, records.Conflict{SessionID: "c", LocalID: 1, Remote: newer}))

	conflicts, err := s.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "c", conflicts[0].SessionID)
	assert.Equal(t, "a", conflicts[1].SessionID)
}
