// Package sheet implements the typed, editable, column-reorderable grid that
// every Folio front end renders.
//
// A Grid composes four parts:
//   - a Schema of column descriptors, each bound once to a render Strategy
//   - a ColumnOrder that owns the visible column sequence and its pinned tail
//   - the row records fetched from the asset API
//   - per-cell edit Sessions that buffer keystrokes until they are committed
//
// Front ends (web, terminal, REPL) drive the grid with discrete events and
// render the View it returns. The grid never reports input errors: invalid
// keystrokes are dropped at the input boundary and invalid reorders are no-ops.
package sheet
