package catalogsync

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconciler"
)

// Sync runs one reconciliation pass and fires hooks for its outcomes. The
// report is returned for aborted passes as well, alongside the fatal error.
func (c *client) Sync(ctx context.Context, credential string) (*reconciler.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := c.reconciler.Run(logging.WithOperation(ctx, "sync"), credential)
	if report != nil {
		c.hooks.trigger(logging.WithSession(ctx, report.SessionID), report.Outcomes)
	}
	return report, err
}

// Pending is the completion signal of a pass started with Start.
type Pending struct {
	done   chan struct{}
	report *reconciler.Report
	err    error
}

// Start runs one pass in the background. The returned Pending completes
// when the pass has finished and its hooks have run.
func (c *client) Start(ctx context.Context, credential string) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.report, p.err = c.Sync(ctx, credential)
	}()
	return p
}

// Done is closed when the pass has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the pass finishes or ctx is done. Abandoning the wait
// does not cancel the pass.
func (p *Pending) Wait(ctx context.Context) (*reconciler.Report, error) {
	select {
	case <-p.done:
		return p.report, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
