package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/catalogsync/pkg/records"
)

// FieldChange represents a difference in one business field.
type FieldChange struct {
	Field  string // Field name (e.g., "unit_cost")
	Local  string // Local value (string representation)
	Remote string // Remote value (string representation)
}

// Diff is the result of comparing one record pair.
type Diff struct {
	LocalID  records.LocalID
	RemoteID records.RemoteID
	Fields   []FieldChange
}

// Equal returns true if no business field differs.
func (d *Diff) Equal() bool {
	return d == nil || len(d.Fields) == 0
}

// Changed reports whether field differs.
func (d *Diff) Changed(field string) bool {
	if d == nil {
		return false
	}
	for _, fc := range d.Fields {
		if fc.Field == field {
			return true
		}
	}
	return false
}

// FieldNames returns the names of the differing fields in comparison order.
func (d *Diff) FieldNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Fields))
	for i, fc := range d.Fields {
		names[i] = fc.Field
	}
	return names
}

// String returns a human-readable representation of the diff.
func (d *Diff) String() string {
	if d.Equal() {
		return "no changes"
	}
	var sb strings.Builder
	for i, fc := range d.Fields {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %s -> %s", fc.Field, fc.Local, fc.Remote)
	}
	return sb.String()
}

func (d *Diff) add(field, local, remote string) {
	d.Fields = append(d.Fields, FieldChange{Field: field, Local: local, Remote: remote})
}
