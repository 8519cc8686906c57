package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/ui"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Embedded  bool
	Dev       bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the web holdings sheet",
		Long: `Start a local web server with the editable holdings sheet.

The sheet talks to the asset API at api_url. With --embedded the API is
served by the same process from the local store, under /api/v1.

The UI provides:
- Typed cell editing with input filtering
- Column drag and keyboard reordering
- Live reload when the layout file changes`,
		Example: `  # Sheet against a running "folio serve"
  folio ui

  # Self-contained sheet over the local store
  folio ui --embedded --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: ui.port)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload the sheet when the layout file changes")
	cmd.Flags().BoolVar(&opts.Embedded, "embedded", false, "Serve the asset API from the local store")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable the hot reload endpoint")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg
	ctx := cmd.Context()

	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	autoOpen := cfg.UI.AutoOpen && !opts.NoBrowser
	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}
	embedded := cfg.UI.Embedded || opts.Embedded

	policy, err := cfg.Sheet.Policy()
	if err != nil {
		return err
	}

	apiURL := cfg.APIURL
	var api *portfolio.Service
	if embedded {
		store, err := openStore(ctx, cfg, cc.Logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if api, err = newService(store, cfg, cc.Logger); err != nil {
			return err
		}
		apiURL = fmt.Sprintf("http://localhost:%d", port)
	}

	client, err := assetapi.New(apiURL, assetapi.WithLogger(cc.Logger))
	if err != nil {
		return err
	}

	server, err := ui.NewServer(ui.Config{
		Backend:       client,
		API:           api,
		Port:          port,
		Policy:        policy,
		LayoutPath:    cfg.Sheet.Layout,
		Watch:         watch,
		SessionSecret: sessionSecret(cfg.UI.SessionSecret, cc),
		Dev:           opts.Dev,
		Logger:        cc.Logger,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go openBrowser(url)
	}

	cc.Renderer.Printf("Starting UI server on %s (API %s)\n", url, apiURL)
	cc.Renderer.Muted("Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// sessionSecret returns the configured secret or a random one. A random
// secret invalidates sessions on restart.
func sessionSecret(configured string, cc *CommandContext) string {
	if configured != "" {
		return configured
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		cc.Logger.Warn("failed to generate session secret", "error", err)
		return "folio-dev-secret"
	}
	cc.Logger.Debug("generated ephemeral session secret")
	return hex.EncodeToString(b)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
