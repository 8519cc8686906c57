package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/folio/pkg/core"
)

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for
// a config file.
const maxUpwardSearchLevels = 10

// envPrefix prefixes environment overrides. A double underscore nests:
// FOLIO_STORE__TYPE sets store.type.
const envPrefix = "FOLIO_"

var configNames = []string{DefaultConfigFileName, "folio.yml"}

// flagKeys maps flag names whose config key differs from the snake_case
// spelling of the flag.
var flagKeys = map[string]string{
	"state":  "state_path",
	"layout": "sheet.layout",
	"base":   "sheet.base_currency",
	"store":  "store.type",
	"db":     "store.path",
}

var (
	configFileUsed string
	currentConfig  *Config
)

func configIn(dir string) string {
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findConfigUpward searches startDir and its parents for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if p := configIn(dir); p != "" {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves path against baseDir unless it is empty,
// absolute or an in-memory database name.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, ":memory:") || strings.HasPrefix(path, "file:") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig forgets the loaded configuration. Used by tests.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

func defaults() map[string]any {
	return map[string]any{
		"api_url":                    DefaultAPIURL,
		"state_path":                 DefaultStateFile,
		"verbose":                    false,
		"output":                     DefaultOutput,
		"user_id":                    core.DefaultUserID,
		"server.port":                DefaultAPIPort,
		"server.read_header_timeout": DefaultHeaderTimeout.String(),
		"ui.port":                    DefaultUIPort,
		"ui.auto_open":               true,
		"ui.watch":                   true,
		"sheet.base_currency":        false,
	}
}

// LoadConfig loads configuration from defaults, the config file, the
// environment and flags. An empty cfgFile searches upward from the working
// directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd
	if cfgFile == "" {
		cfgFile = findConfigUpward(cwd)
	}
	configFileUsed = cfgFile
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Paths given as flags are relative to the working directory, not the
	// project root.
	var flagPaths []string
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "state_path" || key == "store.path" || key == "sheet.layout" {
				flagPaths = append(flagPaths, key)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	resolvePaths(&cfg, cwd, flagPaths)
	expandSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

func resolvePaths(cfg *Config, cwd string, fromFlags []string) {
	base := func(key string) string {
		for _, k := range fromFlags {
			if k == key {
				return cwd
			}
		}
		return cfg.ProjectRoot
	}
	cfg.StatePath = resolvePathRelativeTo(expandEnvVars(cfg.StatePath), base("state_path"))
	cfg.Sheet.Layout = resolvePathRelativeTo(expandEnvVars(cfg.Sheet.Layout), base("sheet.layout"))

	if cfg.Store == nil {
		cfg.Store = &core.StoreConfig{}
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if isSQLite(cfg.Store.Type) {
		if cfg.Store.Path == "" {
			cfg.Store.Path = cfg.StatePath
		} else {
			cfg.Store.Path = resolvePathRelativeTo(expandEnvVars(cfg.Store.Path), base("store.path"))
		}
	}
}

func isSQLite(t string) bool {
	switch strings.ToLower(t) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

// expandSecrets expands ${VAR} references in connection and session fields.
func expandSecrets(cfg *Config) {
	s := cfg.Store
	s.Host = expandEnvVars(s.Host)
	s.Database = expandEnvVars(s.Database)
	s.User = expandEnvVars(s.User)
	s.Password = expandEnvVars(s.Password)
	for k, v := range s.Options {
		s.Options[k] = expandEnvVars(v)
	}
	cfg.UI.SessionSecret = expandEnvVars(cfg.UI.SessionSecret)
	cfg.APIURL = expandEnvVars(cfg.APIURL)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment values. Unset
// variables are left as written.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// GetConfigFileUsed returns the path of the loaded config file, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by the last LoadConfig.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key the CLI stores its logger under.
func LoggerKey() any {
	return loggerKey{}
}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}
