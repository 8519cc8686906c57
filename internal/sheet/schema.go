package sheet

import (
	"errors"
	"fmt"
)

// Type is the semantic type of a column.
type Type string

// Semantic column types.
const (
	TypeIdentifier      Type = "identifier"
	TypeQuantity        Type = "quantity"
	TypeDate            Type = "date"
	TypeBank            Type = "bank"
	TypeAccountType     Type = "account_type"
	TypePercentage      Type = "percentage"
	TypeCurrency        Type = "currency"
	TypeCurrencyDerived Type = "currency_derived"
	TypeAction          Type = "action"
	TypeText            Type = "text"
)

// ActionColumnID is the id of the trailing add/delete column.
const ActionColumnID = "+"

// Column is a static column descriptor.
type Column struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Type  Type   `yaml:"type" json:"type"`
	// Width is measured in character cells.
	Width int `yaml:"width" json:"width"`
	// CodeField names the row field holding an identifier's cross-reference code.
	CodeField string `yaml:"code_field,omitempty" json:"code_field,omitempty"`
	// Dividend marks a derived currency column that reports dividends.
	Dividend bool `yaml:"dividend,omitempty" json:"dividend,omitempty"`
	// Pinned excludes the column from reordering and keeps it last.
	Pinned bool `yaml:"pinned,omitempty" json:"pinned,omitempty"`
}

// Schema is a validated set of columns, each bound to its render strategy.
type Schema struct {
	columns    []Column
	strategies []Strategy
	index      map[string]int
	pinned     string
}

// Schema validation errors.
var (
	ErrEmptyColumnID     = errors.New("column id must not be empty")
	ErrDuplicateColumnID = errors.New("duplicate column id")
	ErrPinnedNotLast     = errors.New("pinned column must be the last column")
)

// NewSchema validates columns and binds a strategy to each of them.
func NewSchema(columns []Column) (*Schema, error) {
	s := &Schema{
		columns:    make([]Column, len(columns)),
		strategies: make([]Strategy, len(columns)),
		index:      make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col.ID == "" {
			return nil, fmt.Errorf("column %d: %w", i, ErrEmptyColumnID)
		}
		if _, dup := s.index[col.ID]; dup {
			return nil, fmt.Errorf("column %q: %w", col.ID, ErrDuplicateColumnID)
		}
		if col.Type == TypeAction {
			col.Pinned = true
		}
		if col.Pinned {
			if i != len(columns)-1 {
				return nil, fmt.Errorf("column %q: %w", col.ID, ErrPinnedNotLast)
			}
			s.pinned = col.ID
		}
		if col.Label == "" {
			col.Label = col.ID
		}
		if col.Width <= 0 {
			col.Width = defaultWidth(col.Type)
		}
		s.columns[i] = col
		s.strategies[i] = StrategyFor(col)
		s.index[col.ID] = i
	}
	return s, nil
}

// MustSchema is NewSchema for static layouts; it panics on invalid input.
func MustSchema(columns []Column) *Schema {
	s, err := NewSchema(columns)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns the columns in descriptor order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// IDs returns the column ids in descriptor order.
func (s *Schema) IDs() []string {
	ids := make([]string, len(s.columns))
	for i, c := range s.columns {
		ids[i] = c.ID
	}
	return ids
}

// Column returns the descriptor for id.
func (s *Schema) Column(id string) (Column, bool) {
	i, ok := s.index[id]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Strategy returns the strategy bound to id. Unknown ids get the
// passthrough strategy.
func (s *Schema) Strategy(id string) Strategy {
	i, ok := s.index[id]
	if !ok {
		return passthroughStrategy{}
	}
	return s.strategies[i]
}

// PinnedID returns the id of the pinned trailing column, or "".
func (s *Schema) PinnedID() string {
	return s.pinned
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

func defaultWidth(t Type) int {
	switch t {
	case TypeIdentifier:
		return 20
	case TypeDate:
		return 12
	case TypeBank, TypeAccountType:
		return 16
	case TypeAction:
		return 3
	default:
		return 14
	}
}
