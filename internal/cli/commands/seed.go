package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/seed"
)

// SeedOutput is the JSON payload of the seed command.
type SeedOutput struct {
	Stocks    int `json:"stocks"`
	Dailies   int `json:"dailies"`
	Dividends int `json:"dividends"`
	Rates     int `json:"rates"`
	Assets    int `json:"assets"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	var holdings bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled market data",
		Long: `Load the bundled stock catalogue, daily prices, dividends and exchange
rates into the store. Loading is idempotent.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Load market data
  folio seed

  # Also add demo holdings for an empty portfolio
  folio seed --holdings --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, holdings)
		},
	}

	cmd.Flags().BoolVar(&holdings, "holdings", false, "Insert demo holdings when the user has none")

	return cmd
}

func runSeed(cmd *cobra.Command, holdings bool) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	store, err := openStore(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := seed.Load(ctx, store, seed.Options{Holdings: holdings}, cc.Logger)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	r := cc.Renderer
	counts := []struct {
		name string
		n    int
	}{
		{"stocks", stats.Stocks},
		{"dailies", stats.Dailies},
		{"dividends", stats.Dividends},
		{"exchange rates", stats.Rates},
		{"holdings", stats.Assets},
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(SeedOutput(stats))
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Seed"))
		r.Println("")
		for _, c := range counts {
			r.Println(output.FormatKeyValue(c.name, strconv.Itoa(c.n)))
		}
	default:
		r.Header(1, "Seed")
		for _, c := range counts {
			r.StatusLine(c.name, "success", "("+strconv.Itoa(c.n)+")")
		}
	}
	return nil
}
