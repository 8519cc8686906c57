package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/export"
	"github.com/leapstack-labs/folio/pkg/core"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Format string
	Local  bool
}

// ExportOutput is the JSON payload of the export command.
type ExportOutput struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Rows   int    `json:"rows"`
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export holdings to CSV or Parquet",
		Long: `Write the holdings with their derived fields to a CSV or Parquet file.
The format follows the file extension unless --format is given.

Rows come from the asset API, or from the local store with --local.`,
		Example: `  folio export holdings.csv
  folio export --local --base holdings.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "", "csv or parquet (default: from extension)")
	cmd.Flags().BoolVar(&opts.Local, "local", false, "Read holdings from the local store instead of the API")

	return cmd
}

func runExport(cmd *cobra.Command, path string, opts *ExportOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	format, err := export.ParseFormat(opts.Format, path)
	if err != nil {
		return err
	}

	resp, err := fetchHoldings(ctx, cc, opts.Local)
	if err != nil {
		return err
	}

	n, err := export.New(cc.Logger).Write(ctx, resp, path, format)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(ExportOutput{Path: path, Format: string(format), Rows: n})
	case output.ModeMarkdown:
		r.Println(output.FormatKeyValue("Exported", fmt.Sprintf("%d rows to %s", n, path)))
	default:
		r.Success(fmt.Sprintf("Exported %d holdings to %s", n, path))
	}
	return nil
}

func fetchHoldings(ctx context.Context, cc *CommandContext, local bool) (*core.StockAssetResponse, error) {
	base := cc.Cfg.Sheet.BaseCurrency
	if !local {
		client, err := newClient(cc.Cfg, cc.Logger)
		if err != nil {
			return nil, err
		}
		return client.AssetStock(ctx, base)
	}
	store, err := openStore(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	svc, err := newService(store, cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	return svc.StockAssets(ctx, cc.Cfg.UserID, base)
}
