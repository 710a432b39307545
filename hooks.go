package catalogsync

import (
	"context"
	"sync"

	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconciler"
)

// RecordHook is called with the outcome of one reconciled item.
type RecordHook func(outcome reconciler.Outcome)

// Hooks provides event callback registration.
type Hooks interface {
	// OnRecordCreated registers a callback for remote records materialized locally.
	OnRecordCreated(RecordHook)

	// OnRecordUpdated registers a callback for local records overwritten by the remote.
	OnRecordUpdated(RecordHook)

	// OnRecordLinked registers a callback for local records that gained a remote id,
	// either by a push or by adoption.
	OnRecordLinked(RecordHook)

	// OnRecordConflict registers a callback for merges the local version won.
	OnRecordConflict(RecordHook)
}

// hooks manages event callbacks for reconciled items.
type hooks struct {
	mu         sync.RWMutex
	onCreated  []RecordHook
	onUpdated  []RecordHook
	onLinked   []RecordHook
	onConflict []RecordHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnRecordCreated registers a callback for remote records materialized locally.
func (c *client) OnRecordCreated(fn RecordHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onCreated = append(c.hooks.onCreated, fn)
}

// OnRecordUpdated registers a callback for local records overwritten by the remote.
func (c *client) OnRecordUpdated(fn RecordHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onUpdated = append(c.hooks.onUpdated, fn)
}

// OnRecordLinked registers a callback for local records that gained a remote id.
func (c *client) OnRecordLinked(fn RecordHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onLinked = append(c.hooks.onLinked, fn)
}

// OnRecordConflict registers a callback for merges the local version won.
func (c *client) OnRecordConflict(fn RecordHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onConflict = append(c.hooks.onConflict, fn)
}

// trigger dispatches each outcome to the hooks registered for its kind.
// A panicking hook is logged and does not stop the others.
func (h *hooks) trigger(ctx context.Context, outcomes []reconciler.Outcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, o := range outcomes {
		var fns []RecordHook
		switch o.Kind {
		case reconciler.OutcomeCreated:
			fns = h.onCreated
		case reconciler.OutcomeUpdated:
			fns = h.onUpdated
		case reconciler.OutcomePushedAndLinked, reconciler.OutcomeAdopted:
			fns = h.onLinked
		case reconciler.OutcomeConflictLocalWins:
			fns = h.onConflict
		}
		for _, fn := range fns {
			h.call(ctx, fn, o)
		}
	}
}

func (h *hooks) call(ctx context.Context, fn RecordHook, o reconciler.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error().
				Interface("panic", r).
				Str("outcome", string(o.Kind)).
				Msg("Record hook panicked")
		}
	}()
	fn(o)
}
