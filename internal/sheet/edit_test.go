package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Transitions(t *testing.T) {
	self := CellKey{RowID: "r1", ColumnID: ColQuantity}
	other := CellKey{RowID: "r1", ColumnID: ColBuyDate}

	tests := []struct {
		name   string
		target FocusTarget
		ends   bool
	}{
		{"other cell", TargetCell(other), true},
		{"same row other column", TargetCell(CellKey{RowID: "r2", ColumnID: ColQuantity}), true},
		{"inside same cell", TargetCell(self), false},
		{"no target", NoTarget, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(self)
			assert.Equal(t, Idle, s.State())
			require.True(t, s.Click("5"))
			assert.Equal(t, Editing, s.State())
			assert.Equal(t, "5", s.Buffer())
			assert.Equal(t, tt.ends, s.Blur(tt.target))
		})
	}
}

func TestSession_BlurWhileIdle(t *testing.T) {
	s := NewSession(CellKey{RowID: "r1", ColumnID: "a"})
	assert.False(t, s.Blur(TargetCell(CellKey{RowID: "r2", ColumnID: "a"})))
}

func TestSession_ClickKeepsBuffer(t *testing.T) {
	s := NewSession(CellKey{RowID: "r1", ColumnID: "a"})
	s.Click("1")
	s.Input("12", nil)
	assert.False(t, s.Click("1"))
	assert.Equal(t, "12", s.Buffer())
}

func TestSession_InputGate(t *testing.T) {
	s := NewSession(CellKey{RowID: "r1", ColumnID: "a"})
	digits := func(c string) bool { return digitsOnly.MatchString(c) }

	assert.False(t, s.Input("1", digits), "idle sessions take no input")

	s.Click("")
	for _, c := range []string{"1", "12", "12a", "123"} {
		s.Input(c, digits)
	}
	assert.Equal(t, "123", s.Buffer())

	buf, ok := s.Finish()
	assert.True(t, ok)
	assert.Equal(t, "123", buf)
	assert.Equal(t, Idle, s.State())

	_, ok = s.Finish()
	assert.False(t, ok)
}

func TestSession_Cancel(t *testing.T) {
	s := NewSession(CellKey{RowID: "r1", ColumnID: "a"})
	s.Click("x")
	s.Input("xyz", nil)
	s.Cancel()
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Buffer())
}

func TestCellKey_RoundTrip(t *testing.T) {
	k := CellKey{RowID: "3f2a-11", ColumnID: ColBuyDate}
	got, ok := ParseCellKey(k.String())
	require.True(t, ok)
	assert.Equal(t, k, got)

	for _, bad := range []string{"", "nocolumn", "|a", "r1|"} {
		_, ok := ParseCellKey(bad)
		assert.False(t, ok, bad)
	}
}
