package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/folio/internal/sheet"
)

// chdirTemp switches into a fresh directory and returns its resolved path.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Chdir(dir)
	t.Cleanup(ResetConfig)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, DefaultConfigFileName)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("api-url", "", "")
	fs.String("state", "", "")
	fs.String("layout", "", "")
	fs.Bool("base", false, "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := chdirTemp(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, int64(1), cfg.UserID)
	assert.Equal(t, DefaultAPIPort, cfg.Server.Port)
	assert.Equal(t, DefaultHeaderTimeout, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, DefaultUIPort, cfg.UI.Port)
	assert.True(t, cfg.UI.AutoOpen)
	assert.True(t, cfg.UI.Watch)
	assert.Equal(t, dir, cfg.ProjectRoot)
	require.NotNil(t, cfg.Store)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, filepath.Join(dir, ".folio", "folio.db"), cfg.Store.Path)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("PG_SECRET_FOR_TEST", "s3cret")
	writeConfig(t, dir, `
api_url: http://assets.internal:9000
output: json
store:
  type: postgres
  host: db.internal
  database: folio
  user: app
  password: ${PG_SECRET_FOR_TEST}
  options:
    sslmode: require
server:
  port: 9000
  read_header_timeout: 3s
ui:
  auto_open: false
  session_secret: ${UNSET_SECRET_FOR_TEST}
sheet:
  layout: layouts/sheet.yaml
  base_currency: true
  sign_colors:
    positive: accent
    negative: alert
formulas:
  double_qty: quantity * 2
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultConfigFileName), GetConfigFileUsed())
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "postgres", cfg.Store.Type)
	assert.Equal(t, "s3cret", cfg.Store.Password)
	assert.Equal(t, "require", cfg.Store.Options["sslmode"])
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.False(t, cfg.UI.AutoOpen)
	assert.Equal(t, "${UNSET_SECRET_FOR_TEST}", cfg.UI.SessionSecret)
	assert.Equal(t, filepath.Join(dir, "layouts", "sheet.yaml"), cfg.Sheet.Layout)
	assert.True(t, cfg.Sheet.BaseCurrency)
	assert.Equal(t, "quantity * 2", cfg.Formulas["double_qty"])

	policy, err := cfg.Sheet.Policy()
	require.NoError(t, err)
	assert.Equal(t, sheet.SignPolicy{Positive: sheet.ToneAccent, Negative: sheet.ToneAlert, Zero: sheet.ToneNeutral}, policy)
}

func TestLoadConfig_UpwardSearchAndFlagPaths(t *testing.T) {
	root := chdirTemp(t)
	writeConfig(t, root, "state_path: data/folio.db\n")
	sub := filepath.Join(root, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "data", "folio.db"), cfg.StatePath)
	assert.Equal(t, cfg.StatePath, cfg.Store.Path)

	cfg, err = LoadConfig("", testFlags(t, "--state", "local.db", "--layout", "cols.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "local.db"), cfg.StatePath, "flag paths are relative to the working directory")
	assert.Equal(t, filepath.Join(sub, "cols.yaml"), cfg.Sheet.Layout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "output: text\nui:\n  port: 7000\n")
	t.Setenv("FOLIO_OUTPUT", "markdown")
	t.Setenv("FOLIO_UI__PORT", "7100")
	t.Setenv("FOLIO_SHEET__SIGN_COLORS__ZERO", "muted")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat, "env beats file")
	assert.Equal(t, 7100, cfg.UI.Port)
	assert.Equal(t, "muted", cfg.Sheet.SignColors["zero"])

	cfg, err = LoadConfig("", testFlags(t, "-o", "json", "--base", "--api-url", "https://folio.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat, "flags beat env")
	assert.True(t, cfg.Sheet.BaseCurrency)
	assert.Equal(t, "https://folio.example.com", cfg.APIURL)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	other := filepath.Join(dir, "conf")
	require.NoError(t, os.MkdirAll(other, 0o750))
	p := writeConfig(t, other, "state_path: folio.db\n")

	cfg, err := LoadConfig(p, nil)
	require.NoError(t, err)
	assert.Equal(t, other, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(other, "folio.db"), cfg.StatePath)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad output", "output: yaml\n", "unknown output format"},
		{"bad store", "store:\n  type: mysql\n", "unsupported store type"},
		{"bad tone", "sheet:\n  sign_colors:\n    positive: green\n", "unknown tone"},
		{"bad sign key", "sheet:\n  sign_colors:\n    up: alert\n", "unknown sign_colors key"},
		{"relative api url", "api_url: /assets\n", "absolute http(s) URL"},
		{"bad user", "user_id: 0\n", "user_id must be positive"},
		{"bad port", "ui:\n  port: 70000\n", "out of range"},
		{"bad duration", "server:\n  read_header_timeout: soon\n", "unable to decode config"},
		{"empty formula", "formulas:\n  x: \"  \"\n", "formula \"x\" is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			writeConfig(t, dir, tt.body)
			_, err := LoadConfig("", nil)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateFormulas(t *testing.T) {
	cfg := &Config{Formulas: map[string]string{"double_qty": "quantity * 2"}}
	assert.NoError(t, cfg.ValidateFormulas())

	cfg.Formulas["broken"] = "quantity *"
	assert.Error(t, cfg.ValidateFormulas())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOLIO_TEST_HOST", "db.local")
	tests := []struct {
		in, want string
	}{
		{"${FOLIO_TEST_HOST}", "db.local"},
		{"postgres://${FOLIO_TEST_HOST}:5432", "postgres://db.local:5432"},
		{"${NOT_SET_ANYWHERE}", "${NOT_SET_ANYWHERE}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}
}

func TestResolvePathRelativeTo(t *testing.T) {
	assert.Equal(t, "", resolvePathRelativeTo("", "/base"))
	assert.Equal(t, "/abs/x.db", resolvePathRelativeTo("/abs/x.db", "/base"))
	assert.Equal(t, ":memory:", resolvePathRelativeTo(":memory:", "/base"))
	assert.Equal(t, filepath.Join("/base", "x.db"), resolvePathRelativeTo("x.db", "/base"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Equal(t, loggerKey{}, LoggerKey())
}
