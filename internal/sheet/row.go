package sheet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// Reserved record keys.
const (
	// KeyID holds the row's identity.
	KeyID = "id"
	// KeyIsNew flags a placeholder row whose derived fields are not computed.
	KeyIsNew = "isNew"
)

// Row is a record mapping column ids to raw values.
type Row struct {
	ID     string
	IsNew  bool
	Values map[string]Value
}

// NewRow creates an empty row with the given id.
func NewRow(id string) Row {
	return Row{ID: id, Values: make(map[string]Value)}
}

// Get returns the value stored under col. Missing fields are null.
func (r Row) Get(col string) Value {
	if r.Values == nil {
		return Null()
	}
	return r.Values[col]
}

// Set stores v under col.
func (r *Row) Set(col string, v Value) {
	if r.Values == nil {
		r.Values = make(map[string]Value)
	}
	r.Values[col] = v
}

// Clone returns a deep copy of r.
func (r Row) Clone() Row {
	c := Row{ID: r.ID, IsNew: r.IsNew, Values: make(map[string]Value, len(r.Values))}
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return c
}

// Record returns r as a plain map, the shape rows take on the wire.
func (r Row) Record() map[string]any {
	rec := make(map[string]any, len(r.Values)+2)
	for k, v := range r.Values {
		switch {
		case v.IsNull():
			rec[k] = nil
		case v.IsNumber():
			f, _ := v.Float()
			rec[k] = f
		default:
			rec[k] = v.Text()
		}
	}
	if _, ok := rec[KeyID]; !ok && r.ID != "" {
		rec[KeyID] = r.ID
	}
	if r.IsNew {
		rec[KeyIsNew] = true
	}
	return rec
}

// MarshalJSON implements json.Marshaler.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Row) UnmarshalJSON(data []byte) error {
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	row, err := RowFromRecord(rec)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// RowFromRecord converts a decoded record into a Row. The "id" field becomes
// the row id and "isNew" the placeholder flag; every other scalar is kept as
// a column value.
func RowFromRecord(rec map[string]any) (Row, error) {
	row := NewRow("")
	for k, raw := range rec {
		if k == KeyIsNew {
			b, _ := raw.(bool)
			row.IsNew = b
			continue
		}
		v, err := ValueOf(raw)
		if err != nil {
			return Row{}, fmt.Errorf("field %q: %w", k, err)
		}
		row.Values[k] = v
	}
	row.ID = row.Get(KeyID).Text()
	return row, nil
}

// RowsFromRecords converts records, skipping any that carry unsupported
// values. The grid tolerates shape drift rather than failing a whole fetch.
func RowsFromRecords(recs []map[string]any, logger *slog.Logger) []Row {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rows := make([]Row, 0, len(recs))
	for i, rec := range recs {
		row, err := RowFromRecord(rec)
		if err != nil {
			logger.Warn("skipping malformed row", "index", i, "error", err)
			continue
		}
		if row.ID == "" {
			row.ID = fmt.Sprintf("row-%d", i)
		}
		rows = append(rows, row)
	}
	return rows
}

// Fields returns the column ids present in r in sorted order.
func (r Row) Fields() []string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
