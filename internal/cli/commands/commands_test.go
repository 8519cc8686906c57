package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/cli/config"
	"github.com/leapstack-labs/folio/internal/cli/output"
	clitest "github.com/leapstack-labs/folio/internal/cli/testutil"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/internal/testutil/fixture"
	"github.com/leapstack-labs/folio/pkg/core"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewServeCommand(), "serve", []string{"port", "seed"}},
		{NewUICommand(), "ui", []string{"port", "no-browser", "watch", "embedded", "dev"}},
		{NewTUICommand(), "tui", nil},
		{NewShowCommand(), "show", nil},
		{NewFieldsCommand(), "fields", nil},
		{NewSeedCommand(), "seed", []string{"holdings"}},
		{NewExportCommand(), "export <file>", []string{"format", "local"}},
		{NewREPLCommand(), "repl", nil},
		{NewMigrateCommand(), "migrate", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestFieldsHasSetSubcommand(t *testing.T) {
	sub, _, err := NewFieldsCommand().Find([]string{"set"})
	require.NoError(t, err)
	assert.Equal(t, "set <field>...", sub.Use)
}

func TestSelectFields(t *testing.T) {
	checked := func(fields []core.AssetField) []string {
		var out []string
		for _, f := range fields {
			if f.Checked {
				out = append(out, f.Name)
			}
		}
		return out
	}

	tests := []struct {
		name    string
		ids     []string
		want    []string
		wantErr string
	}{
		{"required kept first", []string{"quantity", "dividend"}, []string{"stock_name", "quantity", "dividend"}, ""},
		{"explicit order", []string{"dividend", "stock_name"}, []string{"dividend", "stock_name"}, ""},
		{"duplicates collapse", []string{"quantity", "quantity"}, []string{"stock_name", "quantity"}, ""},
		{"unknown field", []string{"nope"}, nil, `unknown field "nope"`},
		{"action column is not a field", []string{sheet.ActionColumnID}, nil, "unknown field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectFields(sheet.DefaultFields(), tt.ids)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, checked(got))
			// every catalogue field is still listed
			assert.Len(t, got, len(sheet.DefaultFields()))
		})
	}
}

// newShell returns a shell over a seeded asset API.
func newShell(t *testing.T) (*sheetShell, *clitest.TestRenderer, *fixture.Fixture) {
	t.Helper()
	fx := fixture.New(t, true)
	ts := fx.Server(t)
	client, err := assetapi.New(ts.URL)
	require.NoError(t, err)

	tr := clitest.NewTestRendererMarkdown()
	cfg := &config.Config{APIURL: ts.URL}
	sh, err := newSheetShell(context.Background(), client, cfg, tr.Renderer, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.Len(t, sh.grid.Rows(), 2)
	return sh, tr, fx
}

func TestShell_EditFiltersAndSaves(t *testing.T) {
	sh, tr, fx := newShell(t)
	ctx := context.Background()

	_, err := sh.exec(ctx, "edit 1 quantity 12a3")
	require.NoError(t, err)
	assert.Contains(t, tr.Output(), `quantity = "123"`)
	assert.True(t, sh.grid.Dirty())

	_, err = sh.exec(ctx, "save")
	require.NoError(t, err)
	assert.Contains(t, tr.Output(), "saved 0 new, 1 changed, 0 deleted")
	assert.False(t, sh.grid.Dirty())

	assets, err := fx.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	var quantities []int64
	for _, a := range assets {
		quantities = append(quantities, a.Quantity)
	}
	assert.Contains(t, quantities, int64(123))
}

func TestShell_EditRejections(t *testing.T) {
	sh, _, _ := newShell(t)
	ctx := context.Background()

	tests := []struct {
		line    string
		wantErr string
	}{
		{"edit", "usage: edit"},
		{"edit 9 quantity 1", `no row "9"`},
		{"edit x quantity 1", `no row "x"`},
		{"edit 1 nope 1", `unknown column "nope"`},
		{"edit 1 profit_rate 1", "not editable"},
		{"frobnicate", `unknown command "frobnicate"`},
		{"move quantity", "usage: move"},
		{"delete", "usage: delete"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			quit, err := sh.exec(ctx, tt.line)
			assert.False(t, quit)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
	assert.False(t, sh.grid.Dirty())
}

func TestShell_ColumnOrder(t *testing.T) {
	sh, _, _ := newShell(t)
	ctx := context.Background()
	initial := sh.grid.Order()
	require.GreaterOrEqual(t, len(initial), 3)

	_, err := sh.exec(ctx, "right "+initial[0])
	require.NoError(t, err)
	assert.Equal(t, initial[1], sh.grid.Order()[0])
	assert.Equal(t, initial[0], sh.grid.Order()[1])

	_, err = sh.exec(ctx, "move "+initial[0]+" "+initial[2])
	require.NoError(t, err)
	assert.Equal(t, initial[0], sh.grid.Order()[2])

	_, err = sh.exec(ctx, "left "+sheet.ActionColumnID)
	assert.Error(t, err, "pinned column cannot move")

	_, err = sh.exec(ctx, "reset")
	require.NoError(t, err)
	assert.Equal(t, initial, sh.grid.Order())
}

func TestShell_AddDeleteAndQuit(t *testing.T) {
	sh, tr, fx := newShell(t)
	ctx := context.Background()

	_, err := sh.exec(ctx, "add")
	require.NoError(t, err)
	assert.Contains(t, tr.Output(), "added row 3")

	_, err = sh.exec(ctx, "delete 2")
	require.NoError(t, err)
	ch := sh.grid.Changes()
	assert.Len(t, ch.Deleted, 1)

	// drop the blank row before saving
	_, err = sh.exec(ctx, "delete 2")
	require.NoError(t, err)
	_, err = sh.exec(ctx, "save")
	require.NoError(t, err)

	assets, err := fx.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	assert.Len(t, assets, 1)

	quit, err := sh.exec(ctx, "quit")
	require.NoError(t, err)
	assert.True(t, quit)

	quit, err = sh.exec(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, quit)
}

func TestShell_ShowAndSaveNothing(t *testing.T) {
	sh, tr, _ := newShell(t)
	ctx := context.Background()

	_, err := sh.exec(ctx, "save")
	require.NoError(t, err)
	assert.Contains(t, tr.Output(), "nothing to save")

	tr.Reset()
	_, err = sh.exec(ctx, "show")
	require.NoError(t, err)
	out := tr.Output()
	assert.Contains(t, out, "# Holdings")
	assert.Contains(t, out, "Samsung Electronics (005930)")
	clitest.AssertOutputMode(t, tr, output.ModeMarkdown)
}

// runInProject executes run against a project configured for apiURL.
func runInProject(t *testing.T, apiURL string, cmd *cobra.Command, run func(*cobra.Command) error) string {
	t.Helper()
	dir := clitest.SetupTestProject(t, apiURL)
	t.Chdir(dir)
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetContext(context.Background())
	require.NoError(t, run(cmd))
	return buf.String()
}

func TestRunShow(t *testing.T) {
	ts := fixture.New(t, true).Server(t)
	out := runInProject(t, ts.URL, NewShowCommand(), runShow)

	assert.Contains(t, out, "# Holdings")
	assert.Contains(t, out, "| # | Stock |")
	assert.Contains(t, out, "## Totals")
	assert.Contains(t, out, "- **Total assets:** KRW")
	clitest.AssertNoANSI(t, out)
}

func TestRunShowEmpty(t *testing.T) {
	ts := fixture.New(t, false).Server(t)
	out := runInProject(t, ts.URL, NewShowCommand(), runShow)
	assert.Contains(t, out, "No holdings yet")
}

func TestRunExportCSV(t *testing.T) {
	ts := fixture.New(t, true).Server(t)
	var path string
	out := runInProject(t, ts.URL, NewExportCommand(), func(cmd *cobra.Command) error {
		path = filepath.Join(t.TempDir(), "holdings.csv")
		return runExport(cmd, path, &ExportOptions{})
	})
	assert.Contains(t, out, "2 rows to "+path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "id", records[0][0])
}

func TestRunExportRejectsFormat(t *testing.T) {
	t.Cleanup(config.ResetConfig)
	cmd := NewExportCommand()
	cmd.SetContext(context.Background())
	err := runExport(cmd, "holdings.xlsx", &ExportOptions{})
	assert.Error(t, err)
}

func TestRunFieldsList(t *testing.T) {
	ts := fixture.New(t, false).Server(t)
	out := runInProject(t, ts.URL, NewFieldsCommand(), runFieldsList)

	assert.Contains(t, out, "# Fields")
	assert.Contains(t, out, "| stock_name | Stock | true | true |")
	assert.Contains(t, out, "| dividend | Dividend | false | false |")
}

func TestRunFieldsSetJSON(t *testing.T) {
	ts := fixture.New(t, false).Server(t)
	out := runInProject(t, ts.URL, NewFieldsCommand(), func(cmd *cobra.Command) error {
		config.GetCurrentConfig().OutputFormat = "json"
		return runFieldsSet(cmd, []string{"dividend"})
	})

	var fields []core.AssetField
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	require.NotEmpty(t, fields)
	assert.Equal(t, core.AssetField{Name: "stock_name", Required: true, Checked: true}, fields[0])
	assert.Equal(t, core.AssetField{Name: "dividend", Checked: true}, fields[1])
}
