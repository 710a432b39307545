// Package conflicts provides the conflicts command.
package conflicts

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/cmd/output"
)

// AppContext defines the interface that the conflicts command needs from the app.
type AppContext interface {
	Client() (catalogsync.Client, error)
	OutputFormat() string
}

// NewCommand creates the conflicts command.
func NewCommand(app AppContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "conflicts",
		GroupID: "records",
		Short:   "Show remote versions that lost a merge to a newer local edit",
		Long: `Conflicts lists the remote versions preserved when a pass kept the
local version of a record, newest first. They can be used to recover remote
changes by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			conflicts, err := client.Conflicts(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(conflicts) > limit {
				conflicts = conflicts[:limit]
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), output.NewConflictList(conflicts))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n conflicts")
	return cmd
}
