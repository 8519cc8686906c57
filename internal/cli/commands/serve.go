package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/seed"
	"github.com/leapstack-labs/folio/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port int
	Seed bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the asset API",
		Long: `Serve the asset API over the configured store.

The store is migrated on start. Endpoints live under /api/v1:
  GET  /bank-accounts, /stocks, /assetstock, /asset-field
  POST /assetstock, PUT /assetstock, DELETE /assetstock/{id}
  PUT  /asset-field`,
		Example: `  # Serve on the configured port (default 8000)
  folio serve

  # Load the demo data first
  folio serve --seed --port 9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: server.port)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "Load the bundled demo data before serving")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	store, err := openStore(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.Seed {
		stats, err := seed.Load(ctx, store, seed.Options{Holdings: true}, cc.Logger)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		cc.Logger.Info("seeded store", "stocks", stats.Stocks, "assets", stats.Assets)
	}

	svc, err := newService(store, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	port := cc.Cfg.Server.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	cc.Renderer.Printf("Serving asset API on http://localhost:%d/api/v1\n", port)
	cc.Renderer.Muted("Press Ctrl+C to stop")

	srv := server.New(server.Config{
		Service:           svc,
		Port:              port,
		ReadHeaderTimeout: cc.Cfg.Server.ReadHeaderTimeout,
		Logger:            cc.Logger,
	})
	return srv.Serve(ctx)
}
