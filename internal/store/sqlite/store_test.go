package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

var t0 = time.Date(2024, 2, 1, 8, 30, 0, 123456000, time.UTC)

func openTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := t0
	s, err := Open(filepath.Join(t.TempDir(), "catalog.sqlite"), WithClock(func() utc.Time { return utc.New(now) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, &now
}

func TestOpenAppliesPragmasAndMigrations(t *testing.T) {
	s, _ := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "3"))
	assert.NotEmpty(t, s.InstanceID())
}

func TestInstanceIDSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.sqlite")

	first, err := Open(path)
	require.NoError(t, err)
	id := first.InstanceID()
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, id, second.InstanceID())
}

func TestInsertAndGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{
		Fields: records.Fields{
			Name:        "Espresso",
			Description: records.Ptr(""),
			UnitCost:    2.75,
			Active:      true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, records.LocalID(1), rec.LocalID)
	assert.Nil(t, rec.RemoteID)
	require.NotNil(t, rec.Description)
	assert.Equal(t, "", *rec.Description, "empty description is not null")
	assert.Nil(t, rec.ExternalCode)
	assert.True(t, rec.Active)
	assert.True(t, rec.CreatedAt.Time.Equal(t0))

	got, err := s.Get(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = s.Get(ctx, 404)
	assert.True(t, errors.IsNotFound(err))
}

func TestRemoteIDUniqueness(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "A"}, RemoteID: records.RemoteIDPtr(7)})
	require.NoError(t, err)

	_, err = s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "B"}, RemoteID: records.RemoteIDPtr(7)})
	assert.ErrorIs(t, err, errors.ErrConstraint)

	unlinked, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "C"}})
	require.NoError(t, err)
	_, err = s.LinkRemoteID(ctx, unlinked.LocalID, 7)
	assert.ErrorIs(t, err, errors.ErrConstraint)
}

func TestLinkRemoteIDGuarded(t *testing.T) {
	s, now := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "Widget"}})
	require.NoError(t, err)

	*now = t0.Add(time.Hour)
	linked, err := s.LinkRemoteID(ctx, rec.LocalID, 99)
	require.NoError(t, err)
	assert.Equal(t, records.RemoteID(99), *linked.RemoteID)
	assert.True(t, linked.UpdatedAt.Time.Equal(rec.UpdatedAt.Time), "link does not bump updated_at")

	again, err := s.LinkRemoteID(ctx, rec.LocalID, 99)
	require.NoError(t, err)
	assert.Equal(t, linked, again)

	other, err := s.LinkRemoteID(ctx, rec.LocalID, 100)
	require.NoError(t, err)
	assert.Equal(t, records.RemoteID(99), *other.RemoteID)

	_, err = s.LinkRemoteID(ctx, 404, 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestApplyRemoteUpdate(t *testing.T) {
	s, now := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{
		Fields:    records.Fields{Name: "Gadget", UnitCost: 5},
		RemoteID:  records.RemoteIDPtr(7),
		UpdatedAt: utc.New(t0),
	})
	require.NoError(t, err)

	remoteAt := utc.New(t0.Add(5 * time.Hour))
	fields := records.Fields{Name: "Gadget Pro", UnitCost: 6, ExternalCode: records.Ptr("GP")}

	t.Run("stale", func(t *testing.T) {
		*now = t0.Add(time.Minute)
		edited, err := s.Update(ctx, rec.LocalID, records.Fields{Name: "Edited", UnitCost: 5})
		require.NoError(t, err)

		_, err = s.ApplyRemoteUpdate(ctx, 7, fields, remoteAt, rec.UpdatedAt)
		assert.True(t, errors.IsStale(err))

		got, err := s.Get(ctx, rec.LocalID)
		require.NoError(t, err)
		assert.Equal(t, edited, got)
		rec = got
	})

	t.Run("applied", func(t *testing.T) {
		updated, err := s.ApplyRemoteUpdate(ctx, 7, fields, remoteAt, rec.UpdatedAt)
		require.NoError(t, err)
		assert.Equal(t, "Gadget Pro", updated.Name)
		assert.Equal(t, "GP", *updated.ExternalCode)
		assert.True(t, updated.UpdatedAt.Time.Equal(remoteAt.Time))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.ApplyRemoteUpdate(ctx, 404, fields, remoteAt, utc.Time{})
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestFetchAllOrdered(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		_, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: name}})
		require.NoError(t, err)
	}

	all, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, rec := range all {
		assert.Equal(t, records.LocalID(i+1), rec.LocalID)
	}
}

func TestConflicts(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "Gadget"}, RemoteID: records.RemoteIDPtr(7)})
	require.NoError(t, err)

	for i, name := range []string{"first", "second"} {
		err := s.RecordConflict(ctx, records.Conflict{
			SessionID:      "sess",
			LocalID:        rec.LocalID,
			LocalUpdatedAt: rec.UpdatedAt,
			Remote: records.RemoteRecord{
				RemoteID:  7,
				Fields:    records.Fields{Name: name},
				UpdatedAt: utc.New(t0.Add(time.Duration(i) * time.Hour)),
			},
			Fields: []string{"name"},
		})
		require.NoError(t, err)
	}

	conflicts, err := s.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "second", conflicts[0].Remote.Name)
	assert.Equal(t, []string{"name"}, conflicts[0].Fields)
	assert.Equal(t, rec.LocalID, conflicts[0].LocalID)
	assert.True(t, conflicts[0].DetectedAt.Time.Equal(t0))
}

func TestConflictKeptOncePerRemoteVersion(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "Gadget"}, RemoteID: records.RemoteIDPtr(7)})
	require.NoError(t, err)

	for _, session := range []string{"pass-1", "pass-2", "pass-3"} {
		require.NoError(t, s.RecordConflict(ctx, records.Conflict{
			SessionID:      session,
			LocalID:        rec.LocalID,
			LocalUpdatedAt: rec.UpdatedAt,
			Remote:         records.RemoteRecord{RemoteID: 7, Fields: records.Fields{Name: "remote"}, UpdatedAt: utc.New(t0)},
			Fields:         []string{"name"},
		}))
	}

	conflicts, err := s.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "pass-1", conflicts[0].SessionID)
}

func TestMigrationCollapsesDuplicateConflicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	s, err := Open(path)
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := s.Insert(ctx, records.NewRecord{Fields: records.Fields{Name: "Gadget"}, RemoteID: records.RemoteIDPtr(7)})
	require.NoError(t, err)

	// Rebuild a version 2 conflicts table holding the same remote version twice.
	_, err = s.db.Exec(`DROP INDEX idx_conflicts_remote_version;
		ALTER TABLE conflicts DROP COLUMN remote_updated_at;
		PRAGMA user_version = 2;`)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = s.db.Exec(
			`INSERT INTO conflicts (session_id, local_id, local_updated_at, remote_id, remote_payload, fields, detected_at)
			 VALUES ('old', ?, '2025-01-01T00:00:00Z', 7, '{"remote_id":7,"name":"r","updated_at":"2025-01-01T00:00:00Z"}', '[]', '2025-01-01T00:00:00Z')`,
			int64(rec.LocalID))
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	conflicts, err := reopened.Conflicts(ctx)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
	assert.NoError(t, reopened.verifyPragma("user_version", "3"))
}
