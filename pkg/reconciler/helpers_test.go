package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/store/memory"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// at returns epoch plus n hours, used as the T<n> timestamps in tests.
func at(n int) utc.Time {
	return utc.New(epoch.Add(time.Duration(n) * time.Hour))
}

// fakeRemote is an in-memory RemoteSource.
type fakeRemote struct {
	mu      sync.Mutex
	catalog []records.RemoteRecord
	nextID  records.RemoteID

	fetchErr    error
	rejectNames map[string]bool
	keys        []string

	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func newFakeRemote(catalog ...records.RemoteRecord) *fakeRemote {
	return &fakeRemote{
		catalog:     catalog,
		nextID:      99,
		rejectNames: make(map[string]bool),
	}
}

func (f *fakeRemote) FetchCatalog(_ context.Context, _ string) ([]records.RemoteRecord, error) {
	if f.block != nil {
		f.once.Do(func() { close(f.started) })
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]records.RemoteRecord, len(f.catalog))
	copy(out, f.catalog)
	return out, nil
}

func (f *fakeRemote) CreateRecord(_ context.Context, _ string, fields records.Fields, key string) (records.RemoteID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys = append(f.keys, key)
	if f.rejectNames[fields.Name] {
		return 0, errors.NewRejectedError(400, "name not allowed")
	}
	id := f.nextID
	f.nextID++
	f.catalog = append(f.catalog, records.RemoteRecord{
		RemoteID:  id,
		Fields:    fields.Clone(),
		UpdatedAt: at(100),
	})
	return id, nil
}

// hookStore wraps the memory store so tests can interfere with a pass.
type hookStore struct {
	*memory.Store

	afterFetch    func(ctx context.Context)
	fetchOverride []records.CatalogRecord
	beforeLink    func(ctx context.Context, localID records.LocalID)
}

func (h *hookStore) FetchAll(ctx context.Context) ([]records.CatalogRecord, error) {
	if h.fetchOverride != nil {
		return h.fetchOverride, nil
	}
	recs, err := h.Store.FetchAll(ctx)
	if err == nil && h.afterFetch != nil {
		h.afterFetch(ctx)
	}
	return recs, err
}

func (h *hookStore) LinkRemoteID(ctx context.Context, localID records.LocalID, remoteID records.RemoteID) (records.CatalogRecord, error) {
	if h.beforeLink != nil {
		h.beforeLink(ctx, localID)
	}
	return h.Store.LinkRemoteID(ctx, localID, remoteID)
}

func newStore() *memory.Store {
	return memory.New(memory.WithClock(func() utc.Time { return at(50) }), memory.WithInstanceID("store-1"))
}

func seed(t *testing.T, s *memory.Store, recs ...records.NewRecord) []records.CatalogRecord {
	t.Helper()
	out := make([]records.CatalogRecord, 0, len(recs))
	for _, rec := range recs {
		stored, err := s.Insert(context.Background(), rec)
		require.NoError(t, err)
		out = append(out, stored)
	}
	return out
}

func mustNew(t *testing.T, store LocalStore, remote RemoteSource, opts ...Option) Reconciler {
	t.Helper()
	r, err := New(store, remote, opts...)
	require.NoError(t, err)
	return r
}
