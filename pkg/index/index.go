// Package index maps remote identifiers to local records for one
// reconciliation pass.
//
// An Index is built from a full local snapshot and never changes after
// Build returns. Records linked during the pass are not visible through it.
package index

import (
	"sort"

	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Index is an immutable view of a local snapshot.
type Index struct {
	byRemote  map[records.RemoteID]records.CatalogRecord
	byLocal   map[records.LocalID]utc.Time
	unlinked  []records.CatalogRecord
	unlinkedC map[string][]records.CatalogRecord
}

// Build indexes a local snapshot. Two records sharing a non-null remote id
// violate the storage invariant and yield a *errors.ConstraintError.
func Build(snapshot []records.CatalogRecord) (*Index, error) {
	idx := &Index{
		byRemote:  make(map[records.RemoteID]records.CatalogRecord, len(snapshot)),
		byLocal:   make(map[records.LocalID]utc.Time, len(snapshot)),
		unlinkedC: make(map[string][]records.CatalogRecord),
	}

	for _, rec := range snapshot {
		rec = rec.Clone()
		idx.byLocal[rec.LocalID] = rec.UpdatedAt

		if rec.RemoteID == nil {
			idx.unlinked = append(idx.unlinked, rec)
			if rec.ExternalCode != nil && *rec.ExternalCode != "" {
				code := *rec.ExternalCode
				idx.unlinkedC[code] = append(idx.unlinkedC[code], rec)
			}
			continue
		}

		if prev, dup := idx.byRemote[*rec.RemoteID]; dup {
			return nil, errors.NewConstraintError(
				"unique_remote_id",
				rec.RemoteID.String(),
				[]int64{int64(prev.LocalID), int64(rec.LocalID)},
				nil,
			)
		}
		idx.byRemote[*rec.RemoteID] = rec
	}

	sort.Slice(idx.unlinked, func(i, j int) bool {
		return idx.unlinked[i].LocalID < idx.unlinked[j].LocalID
	})

	return idx, nil
}

// Lookup returns the local record linked to remoteID.
func (idx *Index) Lookup(remoteID records.RemoteID) (records.CatalogRecord, bool) {
	rec, ok := idx.byRemote[remoteID]
	if !ok {
		return records.CatalogRecord{}, false
	}
	return rec.Clone(), true
}

// Unlinked returns the records without a remote id in ascending local id
// order.
func (idx *Index) Unlinked() []records.CatalogRecord {
	out := make([]records.CatalogRecord, len(idx.unlinked))
	for i, rec := range idx.unlinked {
		out[i] = rec.Clone()
	}
	return out
}

// UnlinkedByExternalCode returns the single unlinked record carrying code.
// Codes that are empty or shared by several unlinked records never match.
func (idx *Index) UnlinkedByExternalCode(code string) (records.CatalogRecord, bool) {
	matches := idx.unlinkedC[code]
	if code == "" || len(matches) != 1 {
		return records.CatalogRecord{}, false
	}
	return matches[0].Clone(), true
}

// Snapshot returns the updated_at observed for localID when the index was
// built.
func (idx *Index) Snapshot(localID records.LocalID) (utc.Time, bool) {
	ts, ok := idx.byLocal[localID]
	return ts, ok
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	return len(idx.byLocal)
}

// LinkedCount returns the number of records carrying a remote id.
func (idx *Index) LinkedCount() int {
	return len(idx.byRemote)
}
