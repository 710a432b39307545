package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/cmd/catalogsync/cmd/conflicts"
	"github.com/agentstation/catalogsync/cmd/catalogsync/cmd/records"
	"github.com/agentstation/catalogsync/cmd/catalogsync/cmd/sync"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(sync.NewCommand(a))
	rootCmd.AddCommand(sync.NewWatchCommand(a))

	// Record commands
	rootCmd.AddCommand(records.NewListCommand(a))
	rootCmd.AddCommand(records.NewAddCommand(a))
	rootCmd.AddCommand(records.NewEditCommand(a))
	rootCmd.AddCommand(conflicts.NewCommand(a))

	rootCmd.AddCommand(a.newVersionCommand())
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, err := fmt.Fprintf(out, "catalogsync %s\n  commit:   %s\n  built:    %s\n  built by: %s\n",
				a.version, a.commit, a.date, a.builtBy)
			return err
		},
	}
}
