// Package differ decides whether a local record and a remote record carry
// the same business content.
package differ

import (
	"strconv"

	"github.com/agentstation/catalogsync/pkg/records"
)

// Compared field names, in comparison order.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldExternalCode = "external_code"
	FieldUnitCost     = "unit_cost"
	FieldActive       = "active"
)

// Differ compares a local record with its linked remote counterpart.
type Differ interface {
	// Records compares the business fields of local and remote.
	// Identifiers and timestamps never take part in the comparison.
	Records(local records.CatalogRecord, remote records.RemoteRecord) *Diff
}

type differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Records compares local and remote field by field.
func (diff *differ) Records(local records.CatalogRecord, remote records.RemoteRecord) *Diff {
	result := &Diff{
		LocalID:  local.LocalID,
		RemoteID: remote.RemoteID,
	}

	diff.compareString(result, FieldName, local.Name, remote.Name)
	diff.compareOptional(result, FieldDescription, local.Description, remote.Description)
	diff.compareOptional(result, FieldExternalCode, local.ExternalCode, remote.ExternalCode)

	// Cost compares exactly; 10.5 and 10.50 are the same float.
	if !diff.ignoreFields[FieldUnitCost] && local.UnitCost != remote.UnitCost {
		result.add(FieldUnitCost, formatCost(local.UnitCost), formatCost(remote.UnitCost))
	}

	if !diff.ignoreFields[FieldActive] && local.Active != remote.Active {
		result.add(FieldActive, strconv.FormatBool(local.Active), strconv.FormatBool(remote.Active))
	}

	return result
}

func (diff *differ) compareString(result *Diff, field, local, remote string) {
	if diff.ignoreFields[field] || local == remote {
		return
	}
	result.add(field, local, remote)
}

// compareOptional treats null and "" as different values.
func (diff *differ) compareOptional(result *Diff, field string, local, remote *string) {
	if diff.ignoreFields[field] {
		return
	}
	switch {
	case local == nil && remote == nil:
		return
	case local != nil && remote != nil && *local == *remote:
		return
	}
	result.add(field, display(local), display(remote))
}

var defaultDiffer = New()

// Equal reports whether local and remote carry identical business fields.
func Equal(local records.CatalogRecord, remote records.RemoteRecord) bool {
	return defaultDiffer.Records(local, remote).Equal()
}

func display(s *string) string {
	if s == nil {
		return "<null>"
	}
	return strconv.Quote(*s)
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
