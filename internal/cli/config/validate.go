package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/formula"
)

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if c.UserID <= 0 {
		return fmt.Errorf("user_id must be positive, got %d", c.UserID)
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api_url %q must be an absolute http(s) URL", c.APIURL)
		}
	}
	if c.Store != nil {
		switch strings.ToLower(c.Store.Type) {
		case "", "sqlite", "sqlite3", "postgres", "postgresql", "pg":
		default:
			return fmt.Errorf("unsupported store type %q\nHint: set store.type in folio.yaml to sqlite or postgres", c.Store.Type)
		}
	}
	for name, port := range map[string]int{"server.port": c.Server.Port, "ui.port": c.UI.Port} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s %d is out of range", name, port)
		}
	}
	if c.Server.ReadHeaderTimeout < 0 {
		return fmt.Errorf("server.read_header_timeout must not be negative")
	}
	if _, err := c.Sheet.Policy(); err != nil {
		return fmt.Errorf("invalid sheet configuration: %w", err)
	}
	for name, expr := range c.Formulas {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("formula %q is empty", name)
		}
	}
	return nil
}

// ValidateFormulas compiles the configured formula overrides.
func (c *Config) ValidateFormulas() error {
	if _, err := formula.New(c.Formulas); err != nil {
		return fmt.Errorf("invalid formulas: %w", err)
	}
	return nil
}
