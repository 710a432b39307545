// Package sync provides the sync and watch commands.
package sync

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// AppContext defines the interface that sync commands need from the app.
type AppContext interface {
	Client() (catalogsync.Client, error)
	Credential() string
	Logger() *zerolog.Logger
	OutputFormat() string
}

// NewCommand creates the sync command.
func NewCommand(app AppContext) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Run one reconciliation pass against the remote catalog",
		Long: `Sync pulls the remote catalog, merges remote changes into the local
catalog by last-writer-wins, and pushes local records the remote has never
seen, linking each to its new remote id.

Per-record failures are reported but do not fail the command unless
--strict is set. A pass that aborts prints its partial report and exits
with an error.`,
		Example: `  catalogsync sync                 # Run a pass, print a table
  catalogsync sync -o json         # Print the full report as JSON
  catalogsync sync --strict        # Exit non-zero on any push failure`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			report, err := client.Sync(cmd.Context(), app.Credential())
			if report != nil {
				if perr := output.Print(cmd.OutOrStdout(), app.OutputFormat(), output.NewReport(report)); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}

			app.Logger().Info().Msg(report.Summary())
			if failures := report.Failures(); strict && len(failures) > 0 {
				return errors.NewValidationError("records", len(failures), "items failed during the pass")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any record fails to push or update")
	return cmd
}
