package commands

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show or change the sheet's visible columns",
		Long: `Show the field configuration stored by the asset API. Checked fields
are the sheet's columns, in list order.`,
		Example: `  folio fields
  folio fields set stock_name quantity buy_date profit_rate dividend`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFieldsList(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <field>...",
		Short: "Replace the visible columns",
		Long: `Show exactly the given fields, in the given order. Required fields
are kept visible even when omitted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldsSet(cmd, args)
		},
	})

	return cmd
}

func runFieldsList(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	client, err := newClient(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	res := client.AssetFields(cmd.Context())
	if !res.OK() {
		return fmt.Errorf("failed to fetch field configuration: %w", res.Err)
	}
	renderFields(cc.Renderer, res.Value)
	return nil
}

func runFieldsSet(cmd *cobra.Command, ids []string) error {
	cc := NewCommandContext(cmd)
	client, err := newClient(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	current := client.AssetFields(ctx)
	if !current.OK() {
		return fmt.Errorf("failed to fetch field configuration: %w", current.Err)
	}
	fields, err := selectFields(current.Value, ids)
	if err != nil {
		return err
	}
	res := client.SaveAssetFields(ctx, fields)
	if !res.OK() {
		return fmt.Errorf("failed to save field configuration: %w", res.Err)
	}
	if cc.Renderer.EffectiveMode() == output.ModeText {
		cc.Renderer.Success("Field configuration saved")
	}
	renderFields(cc.Renderer, res.Value)
	return nil
}

// selectFields checks exactly ids, in order, keeping required fields
// checked. Unchecked known fields follow in catalogue order.
func selectFields(current []core.AssetField, ids []string) ([]core.AssetField, error) {
	if len(current) == 0 {
		current = sheet.DefaultFields()
	}
	required := make(map[string]bool)
	for _, f := range current {
		if f.Required {
			required[f.Name] = true
		}
	}
	known := make(map[string]bool)
	for _, c := range sheet.Catalog() {
		if !c.Pinned {
			known[c.ID] = true
		}
	}

	var out []core.AssetField
	seen := make(map[string]bool)
	add := func(name string, checked bool) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, core.AssetField{Name: name, Required: required[name], Checked: checked || required[name]})
	}
	for _, f := range current {
		if f.Required && !slices.Contains(ids, f.Name) {
			add(f.Name, true)
		}
	}
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("unknown field %q", id)
		}
		add(id, true)
	}
	for _, c := range sheet.Catalog() {
		if known[c.ID] {
			add(c.ID, false)
		}
	}
	return out, nil
}

func renderFields(r *output.Renderer, fields []core.AssetField) {
	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(fields)
		return
	}
	labels := make(map[string]string)
	for _, c := range sheet.Catalog() {
		labels[c.ID] = c.Label
	}
	t := output.Table{Header: []string{"Field", "Label", "Required", "Shown"}}
	for _, f := range fields {
		t.Rows = append(t.Rows, []string{f.Name, labels[f.Name], strconv.FormatBool(f.Required), strconv.FormatBool(f.Checked)})
	}
	r.Header(1, "Fields")
	r.Table(t)
}
