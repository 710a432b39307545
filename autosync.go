package catalogsync

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// AutoSyncer provides controls for background reconciliation passes.
type AutoSyncer interface {
	// AutoSyncOn starts a pass with credential at every interval tick.
	AutoSyncOn(credential string) error

	// AutoSyncOff stops background passes and waits for a running one to end.
	AutoSyncOff() error
}

// AutoSyncOn starts background passes. Calling it again restarts the loop
// with the new credential.
func (c *client) AutoSyncOn(credential string) error {
	interval := c.options.autoSyncInterval
	if interval <= 0 {
		return &errors.ValidationError{
			Field:   "auto_sync_interval",
			Value:   interval,
			Message: "must be positive",
		}
	}

	if err := c.AutoSyncOff(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.syncCancel = cancel
	c.syncTicker = time.NewTicker(interval)
	c.syncDone = make(chan struct{})

	go c.autoSyncLoop(ctx, c.syncTicker, c.syncDone, credential)

	logging.Info().Dur("interval", interval).Msg("Auto-sync started")
	return nil
}

func (c *client) autoSyncLoop(ctx context.Context, ticker *time.Ticker, done chan<- struct{}, credential string) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, constants.SyncContextTimeout)
			report, err := c.Sync(passCtx, credential)
			cancel()

			switch {
			case err == nil:
				logging.Debug().Str("summary", report.Summary()).Msg("Auto-sync pass finished")
			case errors.IsBusy(err):
				logging.Debug().Msg("Auto-sync skipped, pass already running")
			case stderrors.Is(err, context.Canceled):
				return
			default:
				logging.Error().Err(err).Msg("Auto-sync pass failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// AutoSyncOff stops background passes.
func (c *client) AutoSyncOff() error {
	c.mu.Lock()
	ticker, cancel, done := c.syncTicker, c.syncCancel, c.syncDone
	c.syncTicker, c.syncCancel, c.syncDone = nil, nil, nil
	c.mu.Unlock()

	if ticker == nil {
		return nil
	}
	ticker.Stop()
	cancel()
	<-done
	logging.Debug().Msg("Auto-sync stopped")
	return nil
}
