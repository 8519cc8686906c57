package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// RowSource fetches the rows a grid displays.
type RowSource interface {
	FetchRows(ctx context.Context) ([]Row, error)
}

// RowSourceFunc adapts a function to RowSource.
type RowSourceFunc func(ctx context.Context) ([]Row, error)

// FetchRows implements RowSource.
func (f RowSourceFunc) FetchRows(ctx context.Context) ([]Row, error) { return f(ctx) }

// FetchResult distinguishes a successful, possibly empty fetch from a failed one.
type FetchResult struct {
	Count int
	Err   error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// Config configures a Grid.
type Config struct {
	Schema  *Schema
	Options Options
	// Policy defaults to DefaultSignPolicy.
	Policy *SignPolicy
	Logger *slog.Logger
}

// Grid is one mounted sheet: schema, column order, rows and edit sessions.
// It is safe for concurrent use.
type Grid struct {
	mu       sync.Mutex
	id       string
	schema   *Schema
	order    *ColumnOrder
	rows     []Row
	sessions map[CellKey]*Session
	options  Options
	policy   SignPolicy
	logger   *slog.Logger

	dirty   map[string]bool
	deleted []string
}

// New creates a grid with no rows.
func New(cfg Config) *Grid {
	schema := cfg.Schema
	if schema == nil {
		schema = DefaultSchema()
	}
	policy := DefaultSignPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Grid{
		id:       uuid.NewString(),
		schema:   schema,
		order:    NewColumnOrder(schema.IDs(), schema.PinnedID()),
		sessions: make(map[CellKey]*Session),
		options:  cfg.Options,
		policy:   policy,
		logger:   logger,
		dirty:    make(map[string]bool),
	}
}

// ID returns the grid's instance id.
func (g *Grid) ID() string { return g.id }

// Schema returns the grid's schema.
func (g *Grid) Schema() *Schema {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.schema
}

// SetSchema swaps the column layout. The column order restarts from
// descriptor order and open edit sessions are discarded.
func (g *Grid) SetSchema(s *Schema) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.schema = s
	g.order = NewColumnOrder(s.IDs(), s.PinnedID())
	g.sessions = make(map[CellKey]*Session)
}

// SetOptions replaces the candidate lists.
func (g *Grid) SetOptions(o Options) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.options = o
}

// Options returns the candidate lists.
func (g *Grid) Options() Options {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.options
}

// SetPolicy replaces the sign policy.
func (g *Grid) SetPolicy(p SignPolicy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policy = p
}

// Reorder moves a column; see ColumnOrder.Reorder.
func (g *Grid) Reorder(activeID, overID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Reorder(activeID, overID)
}

// MoveLeft moves a column one slot left.
func (g *Grid) MoveLeft(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.MoveLeft(id)
}

// MoveRight moves a column one slot right.
func (g *Grid) MoveRight(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.MoveRight(id)
}

// ResetOrder restores descriptor order.
func (g *Grid) ResetOrder() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.order.Reset()
}

// Order returns the visible column ids.
func (g *Grid) Order() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.IDs()
}

// SetRows replaces the rows, discarding edit sessions and pending changes.
func (g *Grid) SetRows(rows []Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setRowsLocked(rows)
}

func (g *Grid) setRowsLocked(rows []Row) {
	g.rows = make([]Row, len(rows))
	for i, r := range rows {
		g.rows[i] = r.Clone()
	}
	g.sessions = make(map[CellKey]*Session)
	g.dirty = make(map[string]bool)
	g.deleted = nil
}

// Rows returns copies of the rows.
func (g *Grid) Rows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Row, len(g.rows))
	for i, r := range g.rows {
		out[i] = r.Clone()
	}
	return out
}

// Row returns a copy of the row with the given id.
func (g *Grid) Row(id string) (Row, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.rowIndex(id)
	if i < 0 {
		return Row{}, false
	}
	return g.rows[i].Clone(), true
}

// Load fetches rows from src. A failed fetch is logged and leaves the grid
// with no rows; the failure is only reported through the result. The fetch
// runs without the lock held, so the last resolution to arrive wins.
func (g *Grid) Load(ctx context.Context, src RowSource) FetchResult {
	rows, err := fetch(ctx, src)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.logger.Error("failed to fetch rows", "grid", g.id, "error", err)
		g.setRowsLocked(nil)
		return FetchResult{Err: err}
	}
	g.setRowsLocked(rows)
	g.logger.Debug("rows loaded", "grid", g.id, "count", len(rows))
	return FetchResult{Count: len(rows)}
}

func fetch(ctx context.Context, src RowSource) (rows []Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("row source panicked: %v", r)
		}
	}()
	if src == nil {
		return nil, fmt.Errorf("no row source")
	}
	return src.FetchRows(ctx)
}

// Click starts editing k. Any other editing cell is committed first, as if
// focus had moved to k. It reports whether k started editing.
func (g *Grid) Click(k CellKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ctx, ok := g.cellContext(k)
	if !ok {
		return false
	}
	for other, s := range g.sessions {
		if other != k && s.Blur(TargetCell(k)) {
			g.commitLocked(other)
		}
	}
	return g.session(k).Click(g.schema.Strategy(k.ColumnID).EditText(ctx))
}

// Blur reports focus leaving k for target. Leaving the cell commits the
// buffer; staying inside it, or blurring without a target, keeps editing.
func (g *Grid) Blur(k CellKey, target FocusTarget) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[k]
	if !ok || !s.Blur(target) {
		return false
	}
	return g.commitLocked(k)
}

// Input offers text as the new buffer of k. Input the column's strategy
// rejects is dropped.
func (g *Grid) Input(k CellKey, text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inputLocked(k, func(string) string { return text })
}

// Type appends r to the buffer of k.
func (g *Grid) Type(k CellKey, r rune) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inputLocked(k, func(buf string) string { return buf + string(r) })
}

// Backspace removes the last rune of the buffer of k.
func (g *Grid) Backspace(k CellKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inputLocked(k, func(buf string) string {
		rs := []rune(buf)
		if len(rs) == 0 {
			return buf
		}
		return string(rs[:len(rs)-1])
	})
}

func (g *Grid) inputLocked(k CellKey, next func(string) string) bool {
	s, ok := g.sessions[k]
	if !ok || !s.Editing() {
		return false
	}
	ctx, ok := g.cellContext(k)
	if !ok {
		return false
	}
	strategy := g.schema.Strategy(k.ColumnID)
	return s.Input(next(s.Buffer()), func(c string) bool { return strategy.Accept(ctx, c) })
}

// Commit writes the buffer of k into its row and ends editing.
func (g *Grid) Commit(k CellKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commitLocked(k)
}

func (g *Grid) commitLocked(k CellKey) bool {
	s, ok := g.sessions[k]
	if !ok {
		return false
	}
	buf, ok := s.Finish()
	delete(g.sessions, k)
	if !ok {
		return false
	}
	ctx, ok := g.cellContext(k)
	if !ok {
		return false
	}
	i := g.rowIndex(k.RowID)
	before := g.rows[i].Clone()
	g.schema.Strategy(k.ColumnID).Commit(ctx, &g.rows[i], buf)
	if !rowEqual(before, g.rows[i]) {
		g.dirty[k.RowID] = true
	}
	return true
}

// Cancel ends editing k and discards its buffer.
func (g *Grid) Cancel(k CellKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[k]; ok {
		s.Cancel()
		delete(g.sessions, k)
	}
}

// Editing returns the cell being edited, if any.
func (g *Grid) Editing() (CellKey, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, s := range g.sessions {
		if s.Editing() {
			return k, true
		}
	}
	return CellKey{}, false
}

// Buffer returns the uncommitted input of k while it is editing.
func (g *Grid) Buffer(k CellKey) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[k]; ok && s.Editing() {
		return s.Buffer(), true
	}
	return "", false
}

// State returns the edit state of k.
func (g *Grid) State(k CellKey) EditState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[k]; ok {
		return s.State()
	}
	return Idle
}

// AddRow appends a placeholder row and returns its id.
func (g *Grid) AddRow() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	row := NewRow(uuid.NewString())
	row.IsNew = true
	g.rows = append(g.rows, row)
	g.dirty[row.ID] = true
	return row.ID
}

// DeleteRow removes a row. Deleting a saved row is recorded as a change.
func (g *Grid) DeleteRow(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.rowIndex(id)
	if i < 0 {
		return false
	}
	row := g.rows[i]
	g.rows = append(g.rows[:i], g.rows[i+1:]...)
	for k := range g.sessions {
		if k.RowID == id {
			delete(g.sessions, k)
		}
	}
	delete(g.dirty, id)
	if !row.IsNew {
		g.deleted = append(g.deleted, id)
	}
	return true
}

// Changes are the edits not yet pushed to the asset API.
type Changes struct {
	// Created holds placeholder rows, Updated edited saved rows.
	Created []Row
	Updated []Row
	Deleted []string
}

// Empty reports whether there is nothing to save.
func (c Changes) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Dirty reports whether there are unsaved changes.
func (g *Grid) Dirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.dirty) > 0 || len(g.deleted) > 0
}

// Changes returns the unsaved changes in row order.
func (g *Grid) Changes() Changes {
	g.mu.Lock()
	defer g.mu.Unlock()
	var c Changes
	for _, r := range g.rows {
		if !g.dirty[r.ID] {
			continue
		}
		if r.IsNew {
			c.Created = append(c.Created, r.Clone())
		} else {
			c.Updated = append(c.Updated, r.Clone())
		}
	}
	c.Deleted = append(c.Deleted, g.deleted...)
	return c
}

// MarkSaved forgets pending changes.
func (g *Grid) MarkSaved() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty = make(map[string]bool)
	g.deleted = nil
}

// HeaderCell is one column header.
type HeaderCell struct {
	Column      Column
	Reorderable bool
}

// RowView is one rendered row.
type RowView struct {
	ID    string
	IsNew bool
	Dirty bool
	Cells []CellView
}

// View is a rendered grid in visible column order.
type View struct {
	GridID string
	Header []HeaderCell
	Rows   []RowView
}

// View renders the grid.
func (g *Grid) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := g.order.IDs()
	v := View{GridID: g.id, Header: make([]HeaderCell, 0, len(ids)), Rows: make([]RowView, 0, len(g.rows))}
	cols := make([]Column, 0, len(ids))
	for _, id := range ids {
		col, _ := g.schema.Column(id)
		cols = append(cols, col)
		v.Header = append(v.Header, HeaderCell{Column: col, Reorderable: g.order.Reorderable(id)})
	}
	for _, row := range g.rows {
		rv := RowView{ID: row.ID, IsNew: row.IsNew, Dirty: g.dirty[row.ID], Cells: make([]CellView, 0, len(cols))}
		for _, col := range cols {
			k := CellKey{RowID: row.ID, ColumnID: col.ID}
			cell := g.schema.Strategy(col.ID).Render(CellContext{
				Column:  col,
				Row:     row,
				Value:   row.Get(col.ID),
				Options: g.options,
				Policy:  g.policy,
			})
			cell.Key = k
			if s, ok := g.sessions[k]; ok && s.Editing() {
				cell.Editing = true
				cell.Elevated = true
				cell.Buffer = s.Buffer()
			}
			rv.Cells = append(rv.Cells, cell)
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

func (g *Grid) session(k CellKey) *Session {
	s, ok := g.sessions[k]
	if !ok {
		s = NewSession(k)
		g.sessions[k] = s
	}
	return s
}

func (g *Grid) rowIndex(id string) int {
	for i, r := range g.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (g *Grid) cellContext(k CellKey) (CellContext, bool) {
	col, ok := g.schema.Column(k.ColumnID)
	if !ok {
		return CellContext{}, false
	}
	i := g.rowIndex(k.RowID)
	if i < 0 {
		return CellContext{}, false
	}
	row := g.rows[i]
	return CellContext{
		Column:  col,
		Row:     row,
		Value:   row.Get(k.ColumnID),
		Options: g.options,
		Policy:  g.policy,
	}, true
}

func rowEqual(a, b Row) bool {
	if a.IsNew != b.IsNew || len(a.Values) != len(b.Values) {
		return false
	}
	for k, v := range a.Values {
		if !v.Equal(b.Values[k]) {
			return false
		}
	}
	return true
}
