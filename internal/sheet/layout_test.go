package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cols    []Column
		wantErr error
	}{
		{"empty id", []Column{{ID: ""}}, ErrEmptyColumnID},
		{"duplicate", []Column{{ID: "a"}, {ID: "a"}}, ErrDuplicateColumnID},
		{"pinned first", []Column{{ID: "+", Type: TypeAction}, {ID: "a"}}, ErrPinnedNotLast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.cols)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewSchema_Defaults(t *testing.T) {
	s, err := NewSchema([]Column{{ID: "memo", Type: TypeText}, {ID: "+", Type: TypeAction}})
	require.NoError(t, err)

	col, ok := s.Column("memo")
	require.True(t, ok)
	assert.Equal(t, "memo", col.Label)
	assert.Equal(t, 14, col.Width)
	assert.Equal(t, "+", s.PinnedID())
	assert.Equal(t, WidgetText, s.Strategy("missing").Widget())
}

func TestColumnsFromFields(t *testing.T) {
	cols := ColumnsFromFields([]core.AssetField{
		{Name: ColQuantity, Checked: true},
		{Name: ColStockName, Required: true},
		{Name: "unknown", Checked: true},
		{Name: ColDividend, Checked: false},
	})
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{ColQuantity, ColStockName, ActionColumnID}, ids)

	assert.Equal(t, DefaultColumns(), ColumnsFromFields(nil))
}

func TestDefaultFields_MatchDefaultColumns(t *testing.T) {
	assert.Equal(t, DefaultColumns(), ColumnsFromFields(DefaultFields()))
}

func TestParseLayout(t *testing.T) {
	data := []byte(`
columns:
  - id: stock_name
    label: Holding
    type: identifier
    code_field: stock_code
  - id: dividend
    type: currency_derived
    dividend: true
    width: 9
`)
	s, err := ParseLayout(data)
	require.NoError(t, err)
	assert.Equal(t, []string{ColStockName, ColDividend, ActionColumnID}, s.IDs())

	col, _ := s.Column(ColDividend)
	assert.True(t, col.Dividend)
	assert.Equal(t, 9, col.Width)

	_, err = ParseLayout([]byte("columns: []"))
	assert.Error(t, err)
	_, err = ParseLayout([]byte("columns: [::"))
	assert.Error(t, err)
}

func TestLoadLayout_RoundTrip(t *testing.T) {
	out, err := MarshalLayout(DefaultColumns())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o600))

	s, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema().IDs(), s.IDs())

	_, err = LoadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRowsFromRecords(t *testing.T) {
	rows := RowsFromRecords([]map[string]any{
		{"id": float64(7), ColStockName: "Samsung", ColDividend: nil, KeyIsNew: false},
		{ColStockName: "bad", "nested": map[string]any{"x": 1}},
		{ColStockName: "no id"},
	}, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "7", rows[0].ID)
	assert.True(t, rows[0].Get(ColDividend).IsNull())
	assert.True(t, rows[0].Get("never-set").IsNull())
	assert.Equal(t, "row-2", rows[1].ID)
}

func TestValue_Truthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, String("").Truthy())
	assert.False(t, Number(0).Truthy())
	assert.True(t, Number(-1).Truthy())
	assert.True(t, String("0").Truthy())
}

func TestRow_JSON(t *testing.T) {
	var r Row
	require.NoError(t, r.UnmarshalJSON([]byte(`{"id":"a1","quantity":3,"isNew":true,"note":null}`)))
	assert.Equal(t, "a1", r.ID)
	assert.True(t, r.IsNew)
	assert.True(t, r.Get(ColQuantity).Equal(Number(3)))

	out, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","quantity":3,"isNew":true,"note":null}`, string(out))
}
