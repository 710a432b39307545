// Package records defines the catalog data model shared by the local store,
// the remote source and the reconciliation engine.
package records

import (
	"strconv"

	"github.com/agentstation/utc"
)

// LocalID identifies a record in the local store. It is assigned by the
// store, never changes and is never reused.
type LocalID int64

// String returns the decimal form of the ID.
func (id LocalID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// RemoteID identifies a record in the remote catalog. It is assigned by
// the remote source and is never zero.
type RemoteID int64

// String returns the decimal form of the ID.
func (id RemoteID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Fields holds the mutable business fields of a catalog entry.
// Description and ExternalCode are pointers because null and empty are
// distinct values.
type Fields struct {
	Name         string  `json:"name" yaml:"name" validate:"required,max=256"`
	Description  *string `json:"description" yaml:"description" validate:"omitempty,max=4096"`
	ExternalCode *string `json:"external_code" yaml:"external_code" validate:"omitempty,max=64"`
	UnitCost     float64 `json:"unit_cost" yaml:"unit_cost" validate:"gte=0"`
	Active       bool    `json:"active" yaml:"active"`
}

// Clone returns a deep copy of the fields.
func (f Fields) Clone() Fields {
	out := f
	out.Description = clonePtr(f.Description)
	out.ExternalCode = clonePtr(f.ExternalCode)
	return out
}

// CatalogRecord is the locally owned representation of a catalog entry.
type CatalogRecord struct {
	LocalID  LocalID   `json:"local_id" yaml:"local_id"`
	RemoteID *RemoteID `json:"remote_id" yaml:"remote_id"`
	Fields   `yaml:",inline"`

	CreatedAt utc.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// Linked reports whether the record carries a remote identifier.
func (r CatalogRecord) Linked() bool {
	return r.RemoteID != nil
}

// Clone returns a deep copy of the record.
func (r CatalogRecord) Clone() CatalogRecord {
	out := r
	out.Fields = r.Fields.Clone()
	if r.RemoteID != nil {
		id := *r.RemoteID
		out.RemoteID = &id
	}
	return out
}

// RemoteRecord is the authoritative representation fetched from the remote
// catalog. It is read-only input to reconciliation.
type RemoteRecord struct {
	RemoteID RemoteID `json:"remote_id" yaml:"remote_id"`
	Fields   `yaml:",inline"`

	CreatedAt utc.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// NewRecord describes a record to insert into the local store. A nil
// RemoteID means a local user creation; zero timestamps are assigned by
// the store from its own clock.
type NewRecord struct {
	Fields
	RemoteID  *RemoteID
	CreatedAt utc.Time
	UpdatedAt utc.Time
}

// FromRemote builds the insert that materializes a remote record locally,
// copying fields and timestamps verbatim.
func FromRemote(remote RemoteRecord) NewRecord {
	id := remote.RemoteID
	return NewRecord{
		Fields:    remote.Fields.Clone(),
		RemoteID:  &id,
		CreatedAt: remote.CreatedAt,
		UpdatedAt: remote.UpdatedAt,
	}
}

// Ptr returns a pointer to s, for building optional string fields.
func Ptr(s string) *string {
	return &s
}

// RemoteIDPtr returns a pointer to id.
func RemoteIDPtr(id RemoteID) *RemoteID {
	return &id
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
