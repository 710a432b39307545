// Package remotetest provides an in-memory remote catalog for tests.
package remotetest

import (
	"context"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/records"
)

// Fake is an in-memory reconciler.RemoteSource. Created records are
// appended to Catalog with ids following NextID.
type Fake struct {
	mu sync.Mutex

	Catalog []records.RemoteRecord
	NextID  records.RemoteID

	// FetchErr fails FetchCatalog; CreateErr fails CreateRecord.
	FetchErr  error
	CreateErr error

	// Clock stamps created records. Defaults to utc.Now.
	Clock func() utc.Time

	keys []string
}

// FetchCatalog returns a copy of the catalog.
func (f *Fake) FetchCatalog(_ context.Context, _ string) ([]records.RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	out := make([]records.RemoteRecord, len(f.Catalog))
	copy(out, f.Catalog)
	return out, nil
}

// CreateRecord appends fields as a new remote record.
func (f *Fake) CreateRecord(_ context.Context, _ string, fields records.Fields, key string) (records.RemoteID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys = append(f.keys, key)
	if f.CreateErr != nil {
		return 0, f.CreateErr
	}

	now := utc.Now()
	if f.Clock != nil {
		now = f.Clock()
	}
	f.NextID++
	f.Catalog = append(f.Catalog, records.RemoteRecord{
		RemoteID:  f.NextID,
		Fields:    fields.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return f.NextID, nil
}

// IdempotencyKeys returns the keys of every create attempt, in order.
func (f *Fake) IdempotencyKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}
