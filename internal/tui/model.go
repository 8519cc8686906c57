// Package tui is the terminal front end of the holdings sheet.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// Backend is the asset API as seen by the terminal sheet.
type Backend interface {
	RowSource(baseCurrency bool) sheet.RowSource
	Options(ctx context.Context) (sheet.Options, error)
	Schema(ctx context.Context) (*sheet.Schema, assetapi.Result[[]core.AssetField])
	AssetStock(ctx context.Context, baseCurrency bool) (*core.StockAssetResponse, error)
	Save(ctx context.Context, ch sheet.Changes) error
}

var _ Backend = (*assetapi.Client)(nil)

// Config configures a Model.
type Config struct {
	Backend Backend
	Policy  sheet.SignPolicy
	// Layout, when set, overrides the API's field configuration.
	Layout *sheet.Schema
	Base   bool
	Logger *slog.Logger
}

type loadedMsg struct {
	result sheet.FetchResult
	totals *core.StockAssetResponse
}

type savedMsg struct {
	err error
}

// Model is the bubbletea model of the sheet. Fetches and saves run as
// commands and resolve into messages on the update loop.
type Model struct {
	grid    *sheet.Grid
	backend Backend
	layout  *sheet.Schema
	logger  *slog.Logger

	base      bool
	row, col  int
	loading   bool
	saving    bool
	status    string
	statusErr bool
	totals    *core.StockAssetResponse

	// copy writes to the system clipboard.
	copy func(string) error

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	styles  styles
	width   int
}

// New creates a Model. Call Init to start loading.
func New(cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	policy := cfg.Policy
	grid := sheet.New(sheet.Config{Policy: &policy, Logger: logger})
	if cfg.Layout != nil {
		grid.SetSchema(cfg.Layout)
	}
	return &Model{
		grid:    grid,
		backend: cfg.Backend,
		layout:  cfg.Layout,
		logger:  logger,
		base:    cfg.Base,
		copy:    clipboard.WriteAll,
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:  newStyles(),
	}
}

// Grid returns the model's grid.
func (m *Model) Grid() *sheet.Grid { return m.grid }

// Init starts the first fetch.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.load())
}

// load fetches schema, options, rows and totals. It runs on a background
// context: a started fetch is never cancelled.
func (m *Model) load() tea.Cmd {
	grid, backend, layout, base, logger := m.grid, m.backend, m.layout, m.base, m.logger
	return func() tea.Msg {
		ctx := context.Background()
		schema := layout
		if schema == nil {
			if s, res := backend.Schema(ctx); res.OK() {
				schema = s
			}
		}
		if schema != nil && !slices.Equal(grid.Schema().IDs(), schema.IDs()) {
			grid.SetSchema(schema)
		}
		if opts, err := backend.Options(ctx); err != nil {
			logger.Warn("failed to load sheet options", "error", err)
		} else {
			grid.SetOptions(opts)
		}
		res := grid.Load(ctx, backend.RowSource(base))
		totals, err := backend.AssetStock(ctx, base)
		if err != nil {
			totals = nil
		}
		return loadedMsg{result: res, totals: totals}
	}
}

func (m *Model) save() tea.Cmd {
	ch := m.grid.Changes()
	if ch.Empty() {
		m.setStatus("Nothing to save", false)
		return nil
	}
	m.saving = true
	m.setStatus("Saving...", false)
	backend := m.backend
	return func() tea.Msg {
		return savedMsg{err: backend.Save(context.Background(), ch)}
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status, m.statusErr = msg, isErr
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.loading = false
		m.totals = msg.totals
		if msg.result.OK() {
			if !m.statusErr && m.status != "Saved" {
				m.setStatus("", false)
			}
		} else {
			m.setStatus("Could not load holdings: "+msg.result.Err.Error(), true)
		}
		m.clampCursor()
		return m, nil

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.logger.Error("failed to save sheet", "error", msg.err)
			m.setStatus("Save failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.grid.MarkSaved()
		m.setStatus("Saved", false)
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())

	case tea.KeyMsg:
		if k, ok := m.grid.Editing(); ok {
			return m, m.updateEditing(k, msg)
		}
		return m, m.updateBrowsing(msg)
	}
	return m, nil
}

func (m *Model) updateEditing(k sheet.CellKey, msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "ctrl+c":
		return tea.Quit
	case key.Matches(msg, m.keys.commit):
		m.grid.Commit(k)
	case key.Matches(msg, m.keys.cancel):
		m.grid.Cancel(k)
	case key.Matches(msg, m.keys.next):
		m.blurTo(k, 1)
	case key.Matches(msg, m.keys.prev):
		m.blurTo(k, -1)
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		m.cycleChoice(k, msg.Type == tea.KeyDown)
	case msg.Type == tea.KeyBackspace:
		m.grid.Backspace(k)
	case msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace:
		for _, r := range msg.Runes {
			m.grid.Type(k, r)
		}
	}
	return nil
}

// blurTo moves the cursor by step columns and reports the focus change to
// the editing cell, which commits it.
func (m *Model) blurTo(k sheet.CellKey, step int) {
	v := m.grid.View()
	if len(v.Header) == 0 {
		return
	}
	m.col = (m.col + step + len(v.Header)) % len(v.Header)
	target, ok := m.cursorKey(v)
	if !ok {
		return
	}
	m.grid.Blur(k, sheet.TargetCell(target))
}

// cycleChoice steps a select cell's buffer through its choices.
func (m *Model) cycleChoice(k sheet.CellKey, forward bool) {
	cell, ok := m.cell(k)
	if !ok || cell.Widget != sheet.WidgetSelect || len(cell.Choices) == 0 {
		return
	}
	i := slices.Index(cell.Choices, cell.Buffer)
	switch {
	case i < 0 && forward:
		i = 0
	case i < 0:
		i = len(cell.Choices) - 1
	case forward:
		i = (i + 1) % len(cell.Choices)
	default:
		i = (i - 1 + len(cell.Choices)) % len(cell.Choices)
	}
	m.grid.Input(k, cell.Choices[i])
}

func (m *Model) updateBrowsing(msg tea.KeyMsg) tea.Cmd {
	v := m.grid.View()
	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.up):
		m.row--
	case key.Matches(msg, m.keys.down):
		m.row++
	case key.Matches(msg, m.keys.left), key.Matches(msg, m.keys.prev):
		m.col--
	case key.Matches(msg, m.keys.right), key.Matches(msg, m.keys.next):
		m.col++
	case key.Matches(msg, m.keys.edit):
		if k, ok := m.cursorKey(v); ok {
			if cell, ok := m.cell(k); ok && cell.Editable {
				m.grid.Click(k)
			}
		}
	case key.Matches(msg, m.keys.moveLeft):
		if id, ok := m.cursorColumn(v); ok && m.grid.MoveLeft(id) {
			m.col--
		}
	case key.Matches(msg, m.keys.moveRight):
		if id, ok := m.cursorColumn(v); ok && m.grid.MoveRight(id) {
			m.col++
		}
	case key.Matches(msg, m.keys.resetOrder):
		m.grid.ResetOrder()
	case key.Matches(msg, m.keys.yank):
		m.yank(v)
	case key.Matches(msg, m.keys.addRow):
		m.grid.AddRow()
		m.row = len(v.Rows)
		m.col = 0
	case key.Matches(msg, m.keys.deleteRow):
		if m.row >= 0 && m.row < len(v.Rows) {
			m.grid.DeleteRow(v.Rows[m.row].ID)
		}
	case key.Matches(msg, m.keys.save):
		if m.saving {
			return nil
		}
		cmd := m.save()
		if cmd == nil {
			return nil
		}
		return tea.Batch(m.spinner.Tick, cmd)
	case key.Matches(msg, m.keys.reload):
		m.loading = true
		return tea.Batch(m.spinner.Tick, m.load())
	case key.Matches(msg, m.keys.base):
		m.base = !m.base
		m.loading = true
		return tea.Batch(m.spinner.Tick, m.load())
	}
	m.clampCursor()
	return nil
}

// yank copies the cursor cell's text, with its code for lookups.
func (m *Model) yank(v sheet.View) {
	k, ok := m.cursorKey(v)
	if !ok {
		return
	}
	c, ok := m.cell(k)
	if !ok || c.Text == "" {
		m.setStatus("Nothing to copy", false)
		return
	}
	text := c.Text
	if c.Code != "" {
		text += " (" + c.Code + ")"
	}
	if err := m.copy(text); err != nil {
		m.setStatus("Copy failed: "+err.Error(), true)
		return
	}
	m.setStatus("Copied "+text, false)
}

func (m *Model) clampCursor() {
	v := m.grid.View()
	m.row = clamp(m.row, 0, len(v.Rows)-1)
	m.col = clamp(m.col, 0, len(v.Header)-1)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}

func (m *Model) cursorColumn(v sheet.View) (string, bool) {
	if m.col < 0 || m.col >= len(v.Header) {
		return "", false
	}
	return v.Header[m.col].Column.ID, true
}

func (m *Model) cursorKey(v sheet.View) (sheet.CellKey, bool) {
	id, ok := m.cursorColumn(v)
	if !ok || m.row < 0 || m.row >= len(v.Rows) {
		return sheet.CellKey{}, false
	}
	return sheet.CellKey{RowID: v.Rows[m.row].ID, ColumnID: id}, true
}

func (m *Model) cell(k sheet.CellKey) (sheet.CellView, bool) {
	for _, rv := range m.grid.View().Rows {
		if rv.ID != k.RowID {
			continue
		}
		for _, c := range rv.Cells {
			if c.Key == k {
				return c, true
			}
		}
	}
	return sheet.CellView{}, false
}

// View renders the sheet.
func (m *Model) View() string {
	v := m.grid.View()
	var b strings.Builder

	mode := "purchase currency"
	if m.base {
		mode = "KRW"
	}
	title := m.styles.title.Render("Holdings") + " " + m.styles.subtitle.Render("("+mode+")")
	if m.loading || m.saving {
		title += " " + m.spinner.View()
	}
	b.WriteString(title + "\n")
	b.WriteString(m.renderTotals() + "\n")

	widths := make([]int, len(v.Header))
	header := make([]string, len(v.Header))
	for i, h := range v.Header {
		widths[i] = max(h.Column.Width, lipgloss.Width(h.Column.Label))
		style := m.styles.header
		if !h.Reorderable {
			style = m.styles.headerPinned
		}
		header[i] = style.Render(pad(h.Column.Label, widths[i]))
	}
	b.WriteString("  " + strings.Join(header, " ") + "\n")

	if len(v.Rows) == 0 {
		b.WriteString(m.styles.status.Render("  (no holdings)") + "\n")
	}
	for ri, rv := range v.Rows {
		mark := "  "
		if rv.Dirty {
			mark = m.styles.dirtyMark.Render("* ")
		}
		cells := make([]string, len(rv.Cells))
		for ci, c := range rv.Cells {
			cells[ci] = m.renderCell(c, widths[ci], rv.IsNew, ri == m.row && ci == m.col)
		}
		b.WriteString(mark + strings.Join(cells, " ") + "\n")
	}

	if m.status != "" {
		style := m.styles.status
		if m.statusErr {
			style = m.styles.statusErr
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTotals() string {
	t := m.totals
	if t == nil {
		return ""
	}
	parts := []string{
		"Total " + portfolio.FormatMoney(t.TotalAssetAmount, portfolio.BaseCurrency),
		"Invested " + portfolio.FormatMoney(t.TotalInvestAmount, portfolio.BaseCurrency),
		"Profit " + portfolio.FormatMoney(t.TotalProfitAmount, portfolio.BaseCurrency),
		"Return " + sheet.FormatPercent(t.TotalProfitRate),
		"Dividends " + portfolio.FormatMoney(t.TotalDividendAmount, portfolio.BaseCurrency),
	}
	return m.styles.totals.Render(strings.Join(parts, "  ·  "))
}

func (m *Model) renderCell(c sheet.CellView, width int, isNew, cursor bool) string {
	if c.Editing {
		text := "▕" + c.Buffer + "▏"
		if c.Widget == sheet.WidgetSelect {
			text = "▕" + c.Buffer + " ⇅▏"
		}
		return m.styles.editing.Render(pad(text, width))
	}
	text := c.Text
	style := m.styles.tone(c.Tone)
	switch {
	case c.Widget == sheet.WidgetAction:
		text = "×"
	case text == "" && c.Hint != "":
		text = c.Hint
		style = m.styles.newRow
	case c.Widget == sheet.WidgetLookup && c.Code != "":
		text += " " + c.Code
	}
	if isNew && c.Tone == sheet.ToneDefault {
		style = m.styles.newRow
	}
	if cursor {
		style = m.styles.cursor
	}
	return style.Render(pad(text, width))
}

// pad truncates or pads s to exactly width display cells.
func pad(s string, width int) string {
	if lipgloss.Width(s) > width {
		var b strings.Builder
		w := 0
		for _, r := range s {
			rw := lipgloss.Width(string(r))
			if w+rw > width-1 {
				break
			}
			b.WriteRune(r)
			w += rw
		}
		return b.String() + "…" + strings.Repeat(" ", max(0, width-1-w))
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}

// Run starts the program on the terminal and blocks until it quits.
func Run(ctx context.Context, cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal ui failed: %w", err)
	}
	return nil
}
