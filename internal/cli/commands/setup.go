package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/cli/config"
	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/formula"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/state"
	"github.com/leapstack-labs/folio/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the loaded config, the logger and a renderer
// for cmd's output streams.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the configuration loaded by the root command, loading
// defaults when a command runs on its own.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	return &config.Config{
		APIURL:       config.DefaultAPIURL,
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
		UserID:       core.DefaultUserID,
		Store:        &core.StoreConfig{Type: "sqlite", Path: config.DefaultStateFile},
		Server:       config.ServerConfig{Port: config.DefaultAPIPort, ReadHeaderTimeout: config.DefaultHeaderTimeout},
		UI:           config.UIConfig{Port: config.DefaultUIPort},
	}
}

// openStore opens the configured store and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*state.SQLStore, error) {
	sc := *cfg.Store
	if strings.HasPrefix(strings.ToLower(sc.Type), "sqlite") && sc.Path != "" && !strings.HasPrefix(sc.Path, ":memory:") {
		if dir := filepath.Dir(sc.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	store, err := state.Open(ctx, sc, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newService builds the portfolio service with the configured formulas.
func newService(store core.Store, cfg *config.Config, logger *slog.Logger) (*portfolio.Service, error) {
	engine, err := formula.New(cfg.Formulas, formula.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("invalid formulas: %w", err)
	}
	return portfolio.New(store, engine, logger)
}

// newClient returns an asset API client for the configured api_url.
func newClient(cfg *config.Config, logger *slog.Logger) (*assetapi.Client, error) {
	return assetapi.New(cfg.APIURL, assetapi.WithLogger(logger))
}

// loadLayout reads the configured layout override, if any.
func loadLayout(cfg *config.Config) (*sheet.Schema, error) {
	if cfg.Sheet.Layout == "" {
		return nil, nil
	}
	return sheet.LoadLayout(cfg.Sheet.Layout)
}

// loadGrid fills a grid from the asset API the way the front ends do:
// layout override or field configuration, candidate lists, then rows.
func loadGrid(ctx context.Context, client *assetapi.Client, cfg *config.Config, base bool, logger *slog.Logger) (*sheet.Grid, error) {
	policy, err := cfg.Sheet.Policy()
	if err != nil {
		return nil, err
	}
	grid := sheet.New(sheet.Config{Policy: &policy, Logger: logger})

	schema, err := loadLayout(cfg)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		var res assetapi.Result[[]core.AssetField]
		if schema, res = client.Schema(ctx); !res.OK() {
			logger.Warn("using default columns", "error", res.Err)
		}
	}
	if schema != nil {
		grid.SetSchema(schema)
	}
	if opts, err := client.Options(ctx); err != nil {
		logger.Warn("failed to load sheet options", "error", err)
	} else {
		grid.SetOptions(opts)
	}
	if res := grid.Load(ctx, client.RowSource(base)); !res.OK() {
		return grid, fmt.Errorf("failed to load holdings: %w", res.Err)
	}
	return grid, nil
}
