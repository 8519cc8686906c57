package sheet

import "strings"

// EditState is the state of a cell's edit session.
type EditState uint8

// Edit states.
const (
	Idle EditState = iota
	Editing
)

func (s EditState) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// CellKey addresses one cell.
type CellKey struct {
	RowID    string
	ColumnID string
}

// keySep separates the parts of an encoded CellKey. Column ids never contain it.
const keySep = "|"

// String encodes k as "row|column".
func (k CellKey) String() string {
	return k.RowID + keySep + k.ColumnID
}

// ParseCellKey decodes a key produced by CellKey.String.
func ParseCellKey(s string) (CellKey, bool) {
	i := strings.LastIndex(s, keySep)
	if i <= 0 || i == len(s)-1 {
		return CellKey{}, false
	}
	return CellKey{RowID: s[:i], ColumnID: s[i+1:]}, true
}

// FocusTarget is where focus went when a cell blurred. The zero value means
// focus left without a target, e.g. to the page background.
type FocusTarget struct {
	Cell  CellKey
	Valid bool
}

// TargetCell returns a focus target inside cell k.
func TargetCell(k CellKey) FocusTarget {
	return FocusTarget{Cell: k, Valid: true}
}

// NoTarget is a blur without a related target.
var NoTarget = FocusTarget{}

// Session is the edit session of one cell. The buffer holds uncommitted
// input; the row value only changes when the grid commits it.
type Session struct {
	key    CellKey
	state  EditState
	buffer string
}

// NewSession returns an idle session for k.
func NewSession(k CellKey) *Session {
	return &Session{key: k}
}

// Key returns the cell the session belongs to.
func (s *Session) Key() CellKey { return s.key }

// State returns the current state.
func (s *Session) State() EditState { return s.state }

// Editing reports whether the cell is being edited.
func (s *Session) Editing() bool { return s.state == Editing }

// Buffer returns the uncommitted input.
func (s *Session) Buffer() string { return s.buffer }

// Click enters Editing with the given initial buffer. Clicking an editing
// cell keeps its buffer. It reports whether the session started.
func (s *Session) Click(initial string) bool {
	if s.state == Editing {
		return false
	}
	s.state = Editing
	s.buffer = initial
	return true
}

// Blur reports whether focus moving to t ends the session. Only a target in a
// different cell ends it; a target inside the same cell, or no target at all,
// keeps the cell editing.
func (s *Session) Blur(t FocusTarget) bool {
	if s.state != Editing || !t.Valid {
		return false
	}
	return t.Cell != s.key
}

// Input replaces the buffer with candidate when accept allows it. Rejected
// input leaves the buffer untouched.
func (s *Session) Input(candidate string, accept func(string) bool) bool {
	if s.state != Editing {
		return false
	}
	if accept != nil && !accept(candidate) {
		return false
	}
	s.buffer = candidate
	return true
}

// Finish leaves Editing and returns the buffer to commit.
func (s *Session) Finish() (string, bool) {
	if s.state != Editing {
		return "", false
	}
	buf := s.buffer
	s.state = Idle
	s.buffer = ""
	return buf, true
}

// Cancel leaves Editing and discards the buffer.
func (s *Session) Cancel() {
	s.state = Idle
	s.buffer = ""
}
