package output

import (
	"strconv"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/reconciler"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Record is the printed form of a local record.
type Record struct {
	LocalID      int64   `json:"local_id" yaml:"local_id"`
	RemoteID     *int64  `json:"remote_id" yaml:"remote_id"`
	Name         string  `json:"name" yaml:"name"`
	Description  *string `json:"description" yaml:"description"`
	ExternalCode *string `json:"external_code" yaml:"external_code"`
	UnitCost     float64 `json:"unit_cost" yaml:"unit_cost"`
	Active       bool    `json:"active" yaml:"active"`
	CreatedAt    string  `json:"created_at" yaml:"created_at"`
	UpdatedAt    string  `json:"updated_at" yaml:"updated_at"`
}

// NewRecord converts a local record.
func NewRecord(rec records.CatalogRecord) Record {
	out := Record{
		LocalID:      int64(rec.LocalID),
		Name:         rec.Name,
		Description:  rec.Description,
		ExternalCode: rec.ExternalCode,
		UnitCost:     rec.UnitCost,
		Active:       rec.Active,
		CreatedAt:    timestamp(rec.CreatedAt),
		UpdatedAt:    timestamp(rec.UpdatedAt),
	}
	if rec.RemoteID != nil {
		id := int64(*rec.RemoteID)
		out.RemoteID = &id
	}
	return out
}

// Table implements Tabler.
func (r Record) Table(wide bool) Data {
	return RecordList{r}.Table(wide)
}

// RecordList is a printable list of local records.
type RecordList []Record

// NewRecordList converts local records.
func NewRecordList(recs []records.CatalogRecord) RecordList {
	out := make(RecordList, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewRecord(rec))
	}
	return out
}

// Table implements Tabler.
func (l RecordList) Table(wide bool) Data {
	data := Data{
		Headers:      []string{"local_id", "remote_id", "name", "unit_cost", "active"},
		RightAligned: []int{0, 1, 3},
	}
	if wide {
		data.Headers = append(data.Headers, "external_code", "description", "updated_at")
	}
	for _, r := range l {
		row := []string{
			strconv.FormatInt(r.LocalID, 10),
			optionalInt(r.RemoteID),
			r.Name,
			strconv.FormatFloat(r.UnitCost, 'f', 2, 64),
			strconv.FormatBool(r.Active),
		}
		if wide {
			row = append(row, optional(r.ExternalCode), optional(r.Description), r.UpdatedAt)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// Report is the printed form of a reconciliation report.
type Report struct {
	SessionID  string               `json:"session_id" yaml:"session_id"`
	State      string               `json:"state" yaml:"state"`
	Summary    string               `json:"summary" yaml:"summary"`
	Created    int                  `json:"created" yaml:"created"`
	Updated    int                  `json:"updated" yaml:"updated"`
	Unchanged  int                  `json:"unchanged" yaml:"unchanged"`
	Conflicted int                  `json:"conflicted" yaml:"conflicted"`
	Pushed     int                  `json:"pushed" yaml:"pushed"`
	PushFailed int                  `json:"push_failed" yaml:"push_failed"`
	Adopted    int                  `json:"adopted" yaml:"adopted"`
	Skipped    int                  `json:"skipped" yaml:"skipped"`
	Cause      string               `json:"cause,omitempty" yaml:"cause,omitempty"`
	Outcomes   []reconciler.Outcome `json:"outcomes" yaml:"outcomes"`
}

// NewReport converts a reconciliation report.
func NewReport(r *reconciler.Report) Report {
	out := Report{
		SessionID:  r.SessionID,
		State:      string(r.State),
		Summary:    r.Summary(),
		Created:    r.Created,
		Updated:    r.Updated,
		Unchanged:  r.Unchanged,
		Conflicted: r.Conflicted,
		Pushed:     r.Pushed,
		PushFailed: r.PushFailed,
		Adopted:    r.Adopted,
		Skipped:    r.Skipped,
		Outcomes:   r.Outcomes,
	}
	if r.Cause != nil {
		out.Cause = r.CauseKind() + ": " + r.Cause.Error()
	}
	if out.Outcomes == nil {
		out.Outcomes = []reconciler.Outcome{}
	}
	return out
}

// Table implements Tabler. Unchanged items are listed only in wide mode.
func (r Report) Table(wide bool) Data {
	data := Data{
		Headers:      []string{"outcome", "local_id", "remote_id", "fields", "reason"},
		RightAligned: []int{1, 2},
	}
	for _, o := range r.Outcomes {
		if o.Kind == reconciler.OutcomeUnchanged && !wide {
			continue
		}
		var localID, remoteID *int64
		if o.LocalID != nil {
			id := int64(*o.LocalID)
			localID = &id
		}
		if o.RemoteID != nil {
			id := int64(*o.RemoteID)
			remoteID = &id
		}
		reason := o.Reason
		if o.Orphaned {
			reason += " (remote record orphaned)"
		}
		data.Rows = append(data.Rows, []string{
			string(o.Kind),
			optionalInt(localID),
			optionalInt(remoteID),
			joinFields(o.Fields),
			reason,
		})
	}
	return data
}

// Conflict is the printed form of a preserved conflict.
type Conflict struct {
	ID             int64    `json:"id" yaml:"id"`
	SessionID      string   `json:"session_id" yaml:"session_id"`
	LocalID        int64    `json:"local_id" yaml:"local_id"`
	RemoteID       int64    `json:"remote_id" yaml:"remote_id"`
	Fields         []string `json:"fields" yaml:"fields"`
	LocalUpdatedAt string   `json:"local_updated_at" yaml:"local_updated_at"`
	RemoteVersion  Record   `json:"remote_version" yaml:"remote_version"`
	DetectedAt     string   `json:"detected_at" yaml:"detected_at"`
}

// ConflictList is a printable list of preserved conflicts.
type ConflictList []Conflict

// NewConflictList converts preserved conflicts.
func NewConflictList(conflicts []records.Conflict) ConflictList {
	out := make(ConflictList, 0, len(conflicts))
	for _, c := range conflicts {
		remoteID := int64(c.Remote.RemoteID)
		out = append(out, Conflict{
			ID:             c.ID,
			SessionID:      c.SessionID,
			LocalID:        int64(c.LocalID),
			RemoteID:       remoteID,
			Fields:         c.Fields,
			LocalUpdatedAt: timestamp(c.LocalUpdatedAt),
			RemoteVersion: Record{
				LocalID:      int64(c.LocalID),
				RemoteID:     &remoteID,
				Name:         c.Remote.Name,
				Description:  c.Remote.Description,
				ExternalCode: c.Remote.ExternalCode,
				UnitCost:     c.Remote.UnitCost,
				Active:       c.Remote.Active,
				CreatedAt:    timestamp(c.Remote.CreatedAt),
				UpdatedAt:    timestamp(c.Remote.UpdatedAt),
			},
			DetectedAt: timestamp(c.DetectedAt),
		})
	}
	return out
}

// Table implements Tabler.
func (l ConflictList) Table(wide bool) Data {
	data := Data{
		Headers:      []string{"id", "local_id", "remote_id", "fields", "remote_updated_at"},
		RightAligned: []int{0, 1, 2},
	}
	if wide {
		data.Headers = append(data.Headers, "local_updated_at", "session_id")
	}
	for _, c := range l {
		row := []string{
			strconv.FormatInt(c.ID, 10),
			strconv.FormatInt(c.LocalID, 10),
			strconv.FormatInt(c.RemoteID, 10),
			joinFields(c.Fields),
			c.RemoteVersion.UpdatedAt,
		}
		if wide {
			row = append(row, c.LocalUpdatedAt, c.SessionID)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

func timestamp(t utc.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Time.UTC().Format(constants.TimeFormatStorage)
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func optionalInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func joinFields(fields []string) string {
	if len(fields) == 0 {
		return "-"
	}
	return strings.Join(fields, ", ")
}
