// Package records provides the list, add and edit commands for local
// catalog records.
package records

import (
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/reconciler"
	"github.com/agentstation/catalogsync/pkg/records"
)

// AppContext defines the interface that record commands need from the app.
type AppContext interface {
	Client() (catalogsync.Client, error)
	Credential() string
	Logger() *zerolog.Logger
	OutputFormat() string
}

// NewListCommand creates the list command.
func NewListCommand(app AppContext) *cobra.Command {
	var unlinked bool

	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "records",
		Short:   "List local catalog records",
		Aliases: []string{"ls"},
		Example: `  catalogsync list                 # All records
  catalogsync list --unlinked      # Records not yet on the remote
  catalogsync list -o wide         # Include codes and timestamps`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			recs, err := client.Records(cmd.Context())
			if err != nil {
				return err
			}
			if unlinked {
				filtered := recs[:0]
				for _, rec := range recs {
					if !rec.Linked() {
						filtered = append(filtered, rec)
					}
				}
				recs = filtered
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), output.NewRecordList(recs))
		},
	}

	cmd.Flags().BoolVar(&unlinked, "unlinked", false, "only show records without a remote id")
	return cmd
}

// NewAddCommand creates the add command.
func NewAddCommand(app AppContext) *cobra.Command {
	var (
		flags fieldFlags
		push  bool
	)

	cmd := &cobra.Command{
		Use:     "add",
		GroupID: "records",
		Short:   "Add a local catalog record",
		Long: `Add stores a new local record. It is pushed to the remote by the next
pass, or right away with --push.`,
		Example: `  catalogsync add --name "Cafe molido" --cost 4.5 --sku CM-250
  catalogsync add --name "Te verde" --push`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			fields := records.Fields{Active: true}
			flags.apply(cmd, &fields)

			var opts []catalogsync.AddOption
			if push {
				opts = append(opts, catalogsync.WithImmediatePush(app.Credential()))
			}

			rec, outcome, err := client.Add(cmd.Context(), fields, opts...)
			if err != nil {
				return err
			}
			if outcome != nil && outcome.Kind != reconciler.OutcomePushedAndLinked {
				app.Logger().Warn().
					Str("cause", outcome.Cause).
					Str("reason", outcome.Reason).
					Msg("Push failed, record will be pushed by the next pass")
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), output.NewRecord(rec))
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&push, "push", false, "push the record to the remote right away")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// NewEditCommand creates the edit command.
func NewEditCommand(app AppContext) *cobra.Command {
	var flags fieldFlags

	cmd := &cobra.Command{
		Use:     "edit <local-id>",
		GroupID: "records",
		Short:   "Edit a local catalog record",
		Long: `Edit changes the given fields of a local record and bumps its
updated_at, so the edit wins over older remote versions on the next pass.`,
		Example: `  catalogsync edit 12 --cost 5.25
  catalogsync edit 12 --no-sku --inactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return errors.NewValidationError("local_id", args[0], "must be a positive integer")
			}

			client, err := app.Client()
			if err != nil {
				return err
			}

			rec, err := client.Record(cmd.Context(), records.LocalID(id))
			if err != nil {
				return err
			}

			fields := rec.Fields.Clone()
			flags.apply(cmd, &fields)

			rec, err = client.Edit(cmd.Context(), rec.LocalID, fields)
			if err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), output.NewRecord(rec))
		},
	}

	flags.register(cmd)
	cmd.Flags().Bool("active", false, "mark the record active")
	cmd.Flags().Bool("no-description", false, "clear the description")
	cmd.Flags().Bool("no-sku", false, "clear the external code")
	return cmd
}
