package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/cli/config"
	"github.com/leapstack-labs/folio/internal/cli/output"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

const replPrompt = "folio> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Edit holdings from a line-oriented shell",
		Long: `Open an interactive shell over the holdings sheet. Edits go through the
same cell rules as the web and terminal sheets and are pushed with "save".

Type "help" for commands.`,
		Example: `  folio repl
  folio> edit 1 quantity 12
  folio> move dividend stock_name
  folio> save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

func runREPL(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	client, err := newClient(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	sh, err := newSheetShell(ctx, client, cc.Cfg, cc.Renderer, cc.Logger.With("component", "repl"))
	if err != nil {
		return err
	}

	historyFile := filepath.Join(filepath.Dir(cc.Cfg.StatePath), "repl_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cc.Renderer.Printf("Folio sheet shell (%s)\n", client.BaseURL())
	cc.Renderer.Println(`Type "help" for commands, "quit" to exit`)
	cc.Renderer.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		quit, err := sh.exec(ctx, line)
		if err != nil {
			cc.Renderer.Error(err.Error())
		}
		if quit {
			break
		}
	}
	if sh.grid.Dirty() {
		cc.Renderer.Warning("unsaved changes were discarded")
	}
	return nil
}

// sheetBackend is what the shell needs from the asset API.
type sheetBackend interface {
	RowSource(baseCurrency bool) sheet.RowSource
	Options(ctx context.Context) (sheet.Options, error)
	Schema(ctx context.Context) (*sheet.Schema, assetapi.Result[[]core.AssetField])
	Save(ctx context.Context, ch sheet.Changes) error
}

// sheetShell interprets shell lines against a grid.
type sheetShell struct {
	grid    *sheet.Grid
	backend sheetBackend
	layout  *sheet.Schema
	r       *output.Renderer
	base    bool
}

func newSheetShell(ctx context.Context, backend sheetBackend, cfg *config.Config, r *output.Renderer, logger *slog.Logger) (*sheetShell, error) {
	policy, err := cfg.Sheet.Policy()
	if err != nil {
		return nil, err
	}
	layout, err := loadLayout(cfg)
	if err != nil {
		return nil, err
	}
	sh := &sheetShell{
		grid:    sheet.New(sheet.Config{Policy: &policy, Logger: logger}),
		backend: backend,
		layout:  layout,
		r:       r,
		base:    cfg.Sheet.BaseCurrency,
	}
	if err := sh.reload(ctx); err != nil {
		logger.Warn("initial load failed", "error", err)
	}
	return sh, nil
}

func (s *sheetShell) reload(ctx context.Context) error {
	schema := s.layout
	if schema == nil {
		schema, _ = s.backend.Schema(ctx)
	}
	if schema != nil && !slices.Equal(s.grid.Schema().IDs(), schema.IDs()) {
		s.grid.SetSchema(schema)
	}
	if opts, err := s.backend.Options(ctx); err == nil {
		s.grid.SetOptions(opts)
	}
	if res := s.grid.Load(ctx, s.backend.RowSource(s.base)); !res.OK() {
		return fmt.Errorf("failed to load holdings: %w", res.Err)
	}
	return nil
}

var shellCommands = []string{"show", "order", "move", "left", "right", "reset", "edit", "add", "delete", "save", "reload", "base", "help", "quit"}

func (s *sheetShell) completer() *readline.PrefixCompleter {
	cols := func(string) []string { return s.grid.Order() }
	items := make([]readline.PrefixCompleterInterface, 0, len(shellCommands))
	for _, c := range shellCommands {
		switch c {
		case "move", "left", "right":
			items = append(items, readline.PcItem(c, readline.PcItemDynamic(cols)))
		default:
			items = append(items, readline.PcItem(c))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// exec runs one line and reports whether the shell should exit.
func (s *sheetShell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		printShellHelp(s.r)
	case "show":
		renderSheet(s.r, s.grid.View(), nil)
	case "order":
		s.r.Println(strings.Join(s.grid.Order(), " "))
	case "move":
		if len(args) != 2 {
			return false, errors.New("usage: move <column> <over-column>")
		}
		if !s.grid.Reorder(args[0], args[1]) {
			return false, fmt.Errorf("cannot move %s over %s", args[0], args[1])
		}
		s.r.Println(strings.Join(s.grid.Order(), " "))
	case "left", "right":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <column>", cmd)
		}
		moved := s.grid.MoveLeft
		if cmd == "right" {
			moved = s.grid.MoveRight
		}
		if !moved(args[0]) {
			return false, fmt.Errorf("cannot move %s %s", args[0], cmd)
		}
		s.r.Println(strings.Join(s.grid.Order(), " "))
	case "reset":
		s.grid.ResetOrder()
		s.r.Println(strings.Join(s.grid.Order(), " "))
	case "edit":
		return false, s.edit(args)
	case "add":
		s.grid.AddRow()
		s.r.Printf("added row %d\n", len(s.grid.Rows()))
	case "delete":
		if len(args) != 1 {
			return false, errors.New("usage: delete <row>")
		}
		row, err := s.rowAt(args[0])
		if err != nil {
			return false, err
		}
		s.grid.DeleteRow(row.ID)
	case "save":
		ch := s.grid.Changes()
		if ch.Empty() {
			s.r.Muted("nothing to save")
			return false, nil
		}
		if err := s.backend.Save(ctx, ch); err != nil {
			return false, fmt.Errorf("save failed: %w", err)
		}
		s.grid.MarkSaved()
		s.r.Success(fmt.Sprintf("saved %d new, %d changed, %d deleted", len(ch.Created), len(ch.Updated), len(ch.Deleted)))
		return false, s.reload(ctx)
	case "reload":
		return false, s.reload(ctx)
	case "base":
		s.base = !s.base
		s.r.Printf("amounts in %s\n", map[bool]string{true: "KRW", false: "purchase currency"}[s.base])
		return false, s.reload(ctx)
	default:
		return false, fmt.Errorf("unknown command %q (type help for commands)", cmd)
	}
	return false, nil
}

// edit types text into a cell key by key, so input the column rejects is
// dropped character by character, then commits.
func (s *sheetShell) edit(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: edit <row> <column> [text]")
	}
	row, err := s.rowAt(args[0])
	if err != nil {
		return err
	}
	k := sheet.CellKey{RowID: row.ID, ColumnID: args[1]}
	if _, ok := s.grid.Schema().Column(k.ColumnID); !ok {
		return fmt.Errorf("unknown column %q", k.ColumnID)
	}
	if !s.cellEditable(k) {
		return fmt.Errorf("column %s is not editable", k.ColumnID)
	}

	s.grid.Click(k)
	s.grid.Input(k, "")
	for _, r := range strings.Join(args[2:], " ") {
		s.grid.Type(k, r)
	}
	buf, _ := s.grid.Buffer(k)
	s.grid.Commit(k)
	s.r.Printf("%s = %q\n", k.ColumnID, buf)
	return nil
}

func (s *sheetShell) cellEditable(k sheet.CellKey) bool {
	for _, rv := range s.grid.View().Rows {
		if rv.ID != k.RowID {
			continue
		}
		for _, c := range rv.Cells {
			if c.Key == k {
				return c.Editable
			}
		}
	}
	return false
}

// rowAt resolves a one-based row number.
func (s *sheetShell) rowAt(arg string) (sheet.Row, error) {
	n, err := strconv.Atoi(arg)
	rows := s.grid.Rows()
	if err != nil || n < 1 || n > len(rows) {
		return sheet.Row{}, fmt.Errorf("no row %q (have %d)", arg, len(rows))
	}
	return rows[n-1], nil
}

func printShellHelp(r *output.Renderer) {
	r.Println(`
Commands:
  show                      Print the sheet
  order                     Print the column order
  move <col> <over>         Drag a column onto another column's slot
  left <col> / right <col>  Move a column one slot
  reset                     Restore the configured column order
  edit <row> <col> [text]   Type text into a cell and commit it
  add                       Append a new holding row
  delete <row>              Delete a holding
  save                      Push changes to the asset API
  reload                    Discard local state and fetch again
  base                      Toggle KRW amounts
  quit                      Exit

Rows are numbered from 1 as printed by "show".`)
}
