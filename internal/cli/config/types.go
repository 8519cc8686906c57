// Package config loads the folio CLI configuration.
//
// Values are layered from lowest to highest precedence: built-in defaults,
// folio.yaml (searched upward from the working directory), FOLIO_*
// environment variables and command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// ServerConfig configures the asset API server.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// UIConfig configures the web sheet.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
	// Embedded serves the asset API from the UI process against the local
	// store instead of calling api_url.
	Embedded bool `koanf:"embedded"`
}

// SheetConfig configures the sheet presentation.
type SheetConfig struct {
	// Layout is an optional YAML column layout overriding the API's field
	// configuration.
	Layout       string            `koanf:"layout"`
	SignColors   map[string]string `koanf:"sign_colors"`
	BaseCurrency bool              `koanf:"base_currency"`
}

// Policy returns the configured sign policy.
func (s SheetConfig) Policy() (sheet.SignPolicy, error) {
	return sheet.ParseSignPolicy(s.SignColors)
}

// Config holds all CLI configuration options.
type Config struct {
	APIURL       string            `koanf:"api_url"`
	StatePath    string            `koanf:"state_path"`
	Verbose      bool              `koanf:"verbose"`
	OutputFormat string            `koanf:"output"`
	UserID       int64             `koanf:"user_id"`
	Store        *core.StoreConfig `koanf:"store"`
	Server       ServerConfig      `koanf:"server"`
	UI           UIConfig          `koanf:"ui"`
	Sheet        SheetConfig       `koanf:"sheet"`
	// Formulas overrides or adds derived-field expressions by name.
	Formulas map[string]string `koanf:"formulas"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultAPIPort        = 8000
	DefaultUIPort         = 8765
	DefaultStateFile      = ".folio/folio.db"
	DefaultOutput         = "auto" // TTY=text, otherwise markdown
	DefaultHeaderTimeout  = 10 * time.Second
	DefaultConfigFileName = "folio.yaml"
)

// DefaultAPIURL is the asset API server the front ends call by default.
var DefaultAPIURL = "http://localhost:8000"
