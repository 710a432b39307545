package records

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/pkg/records"
)

// fieldFlags binds record fields to command flags. Only flags set on the
// command line change a field.
type fieldFlags struct {
	name        string
	description string
	sku         string
	cost        float64
	inactive    bool
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "record name")
	cmd.Flags().StringVar(&f.description, "description", "", "free-text description")
	cmd.Flags().StringVar(&f.sku, "sku", "", "external code (SKU)")
	cmd.Flags().Float64Var(&f.cost, "cost", 0, "unit cost")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "mark the record inactive")
}

func (f *fieldFlags) apply(cmd *cobra.Command, fields *records.Fields) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		fields.Name = f.name
	}
	if flags.Changed("description") {
		fields.Description = records.Ptr(f.description)
	}
	if flags.Changed("sku") {
		fields.ExternalCode = records.Ptr(f.sku)
	}
	if flags.Changed("cost") {
		fields.UnitCost = f.cost
	}
	if flags.Changed("inactive") && f.inactive {
		fields.Active = false
	}
	if active, err := flags.GetBool("active"); err == nil && flags.Changed("active") && active {
		fields.Active = true
	}
	if unset, err := flags.GetBool("no-description"); err == nil && unset {
		fields.Description = nil
	}
	if unset, err := flags.GetBool("no-sku"); err == nil && unset {
		fields.ExternalCode = nil
	}
}
