package sync

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/reconciler"
)

// WatchContext adds the background interval to AppContext.
type WatchContext interface {
	AppContext
	AutoSyncInterval() time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(app WatchContext) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Run reconciliation passes in the background until interrupted",
		Long: `Watch runs one pass immediately and then one pass per interval
(auto_sync_interval, default 15m). Record events are logged as they happen.
Passes that find another pass running are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			logger := app.Logger()

			client.OnRecordCreated(logOutcome(logger, "Record created from remote"))
			client.OnRecordUpdated(logOutcome(logger, "Record updated from remote"))
			client.OnRecordLinked(logOutcome(logger, "Record linked"))
			client.OnRecordConflict(logOutcome(logger, "Local record kept over remote version"))

			ctx := cmd.Context()
			report, err := client.Start(ctx, app.Credential()).Wait(ctx)
			switch {
			case err == nil:
				logger.Info().Msg(report.Summary())
			case errors.IsBusy(err):
				logger.Info().Msg("Another pass is running, waiting for the next interval")
			case ctx.Err() != nil:
				return nil
			default:
				logger.Error().Err(err).Str("cause", errors.Kind(err)).Msg("Initial pass failed")
			}

			if err := client.AutoSyncOn(app.Credential()); err != nil {
				return err
			}
			logger.Info().Dur("interval", app.AutoSyncInterval()).Msg("Watching for changes")

			<-ctx.Done()
			return client.AutoSyncOff()
		},
	}
}

func logOutcome(logger *zerolog.Logger, msg string) func(reconciler.Outcome) {
	return func(o reconciler.Outcome) {
		event := logger.Info().Str("outcome", string(o.Kind))
		if o.LocalID != nil {
			event = event.Int64("local_id", int64(*o.LocalID))
		}
		if o.RemoteID != nil {
			event = event.Int64("remote_id", int64(*o.RemoteID))
		}
		if len(o.Fields) > 0 {
			event = event.Strs("fields", o.Fields)
		}
		event.Msg(msg)
	}
}
