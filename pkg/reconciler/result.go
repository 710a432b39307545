package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

// State is the lifecycle state of one pass.
type State string

const (
	// StateIdle is a reconciler with no pass in progress.
	StateIdle State = "idle"
	// StateRunning is a pass holding the lock.
	StateRunning State = "running"
	// StateCompleted is a pass that processed every item.
	StateCompleted State = "completed"
	// StateAborted is a pass stopped by a fatal error.
	StateAborted State = "aborted"
)

// OutcomeKind classifies what happened to one item.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeCreated           OutcomeKind = "created"
	OutcomeUpdated           OutcomeKind = "updated"
	OutcomeUnchanged         OutcomeKind = "unchanged"
	OutcomeConflictLocalWins OutcomeKind = "conflict_local_wins"
	OutcomePushedAndLinked   OutcomeKind = "pushed_and_linked"
	OutcomePushFailed        OutcomeKind = "push_failed"
	OutcomeAdopted           OutcomeKind = "adopted"
	OutcomeUpdateSkipped     OutcomeKind = "update_skipped"
)

// Outcome is the per-item result of a pass.
type Outcome struct {
	Kind     OutcomeKind       `json:"kind" yaml:"kind"`
	LocalID  *records.LocalID  `json:"local_id,omitempty" yaml:"local_id,omitempty"`
	RemoteID *records.RemoteID `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
	Fields   []string          `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Cause is the taxonomy name of the failure on failed items.
	Cause  string `json:"cause,omitempty" yaml:"cause,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Orphaned marks a remote record created by a push that could not be
	// linked locally.
	Orphaned bool  `json:"orphaned,omitempty" yaml:"orphaned,omitempty"`
	Err      error `json:"-" yaml:"-"`
}

// Report summarizes one pass.
type Report struct {
	SessionID  string   `json:"session_id" yaml:"session_id"`
	State      State    `json:"state" yaml:"state"`
	StartedAt  utc.Time `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time `json:"finished_at" yaml:"finished_at"`

	Created    int `json:"created" yaml:"created"`
	Updated    int `json:"updated" yaml:"updated"`
	Unchanged  int `json:"unchanged" yaml:"unchanged"`
	Conflicted int `json:"conflicted" yaml:"conflicted"`
	Pushed     int `json:"pushed" yaml:"pushed"`
	PushFailed int `json:"push_failed" yaml:"push_failed"`
	Adopted    int `json:"adopted" yaml:"adopted"`
	Skipped    int `json:"skipped" yaml:"skipped"`

	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`

	// Cause is the fatal error of an aborted pass.
	Cause error `json:"-" yaml:"-"`
}

func newReport(sessionID string, startedAt utc.Time) *Report {
	return &Report{
		SessionID: sessionID,
		State:     StateRunning,
		StartedAt: startedAt,
		Outcomes:  []Outcome{},
	}
}

func (r *Report) add(o Outcome) {
	switch o.Kind {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeConflictLocalWins:
		r.Conflicted++
	case OutcomePushedAndLinked:
		r.Pushed++
	case OutcomePushFailed:
		r.PushFailed++
	case OutcomeAdopted:
		r.Adopted++
	case OutcomeUpdateSkipped:
		r.Skipped++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Completed reports whether the pass ran to completion.
func (r *Report) Completed() bool {
	return r != nil && r.State == StateCompleted
}

// Duration returns how long the pass ran.
func (r *Report) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Time.Sub(r.StartedAt.Time)
}

// CauseKind returns the taxonomy name of the fatal cause, if any.
func (r *Report) CauseKind() string {
	if r == nil {
		return ""
	}
	return errors.Kind(r.Cause)
}

// Failures returns the outcomes of items that failed.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == OutcomePushFailed || o.Kind == OutcomeUpdateSkipped {
			out = append(out, o)
		}
	}
	return out
}

// Summary returns a human-readable one-line summary.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d created, %d updated, %d unchanged, %d conflicted, %d pushed, %d push failed",
		r.State, r.Created, r.Updated, r.Unchanged, r.Conflicted, r.Pushed, r.PushFailed)
	if r.Adopted > 0 {
		fmt.Fprintf(&sb, ", %d adopted", r.Adopted)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, ", %d skipped", r.Skipped)
	}
	if r.Cause != nil {
		fmt.Fprintf(&sb, " (%s: %v)", errors.Kind(r.Cause), r.Cause)
	}
	return sb.String()
}

func localRef(id records.LocalID) *records.LocalID {
	return &id
}

func remoteRef(id records.RemoteID) *records.RemoteID {
	return &id
}
