package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the holdings sheet",
		Long: `Print the holdings sheet as the web and terminal sheets render it:
the configured columns, formatted cells and portfolio totals.

Output adapts to environment:
  - Terminal: Table with sign colours
  - Piped/Scripted: Markdown table (agent-friendly)
  - JSON: the raw asset API payload`,
		Example: `  folio show
  folio show --base
  folio show --output json | jq '.total_profit_rate'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShow(cmd)
		},
	}
}

func runShow(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()
	base := cc.Cfg.Sheet.BaseCurrency

	client, err := newClient(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		resp, err := client.AssetStock(ctx, base)
		if err != nil {
			return err
		}
		return r.JSON(resp)
	}

	grid, err := loadGrid(ctx, client, cc.Cfg, base, cc.Logger)
	if err != nil {
		return err
	}
	totals, err := client.AssetStock(ctx, base)
	if err != nil {
		cc.Logger.Warn("failed to load totals", "error", err)
	}

	renderSheet(r, grid.View(), totals)
	return nil
}

// sheetTable converts a grid view into a table. The action column is
// dropped and tones are applied when colour is available.
func sheetTable(r *output.Renderer, v sheet.View) output.Table {
	t := output.Table{Header: []string{"#"}, RightAlign: []int{0}}
	var keep []int
	for i, h := range v.Header {
		if h.Column.Type == sheet.TypeAction {
			continue
		}
		keep = append(keep, i)
		t.Header = append(t.Header, h.Column.Label)
		switch h.Column.Type {
		case sheet.TypeIdentifier, sheet.TypeBank, sheet.TypeAccountType, sheet.TypeDate, sheet.TypeText:
		default:
			t.RightAlign = append(t.RightAlign, len(t.Header)-1)
		}
	}
	styled := r.EffectiveMode() == output.ModeText
	for n, rv := range v.Rows {
		row := make([]string, 0, len(keep)+1)
		row = append(row, strconv.Itoa(n+1))
		for _, i := range keep {
			c := rv.Cells[i]
			text := c.Text
			if c.Code != "" {
				text += " (" + c.Code + ")"
			}
			if styled {
				text = r.Styles().Tone(c.Tone).Render(text)
			}
			row = append(row, text)
		}
		t.Rows = append(t.Rows, row)
	}
	t.Caption = strconv.Itoa(len(v.Rows)) + " holdings"
	return t
}

func renderSheet(r *output.Renderer, v sheet.View, totals *core.StockAssetResponse) {
	r.Header(1, "Holdings")
	if len(v.Rows) == 0 {
		r.Muted("No holdings yet. Add one with \"folio repl\" or the web sheet.")
	} else {
		r.Table(sheetTable(r, v))
	}
	if totals == nil {
		return
	}
	r.Println("")
	r.Header(2, "Totals")
	money := func(f float64) string { return portfolio.FormatMoney(f, portfolio.BaseCurrency) }
	pairs := []struct{ k, v string }{
		{"Total assets", money(totals.TotalAssetAmount)},
		{"Invested", money(totals.TotalInvestAmount)},
		{"Profit", money(totals.TotalProfitAmount)},
		{"Return", sheet.FormatPercent(totals.TotalProfitRate)},
		{"Dividends", money(totals.TotalDividendAmount)},
	}
	for _, p := range pairs {
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatKeyValue(p.k, p.v))
		} else {
			r.Println(fmt.Sprintf("%-14s %s", p.k, p.v))
		}
	}
}
