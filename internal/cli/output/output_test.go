package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/folio/internal/sheet"
)

func newTest(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"text", ModeText, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		tty  bool
		want Mode
	}{
		{"auto on tty", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"json on tty", ModeJSON, true, ModeJSON},
		{"empty is auto", "", false, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTest(tt.mode, tt.tty)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Messages(t *testing.T) {
	r, out, errOut := newTest(ModeText, false)

	r.Success("saved 2 holdings")
	r.Muted("state at folio.db")
	r.Warning("no layout")
	r.Error("boom")
	r.StatusLine("stocks", "success", "(4)")

	assert.Contains(t, out.String(), "✓ saved 2 holdings")
	assert.Contains(t, out.String(), "state at folio.db")
	assert.Contains(t, out.String(), "✓ stocks (4)")
	assert.Contains(t, errOut.String(), "! no layout")
	assert.Contains(t, errOut.String(), "✗ boom")
	assert.NotContains(t, out.String(), "\x1b[", "plain writers get no escape codes")
}

func TestRenderer_Header(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)
	r.Header(2, "Holdings")
	assert.Equal(t, "## Holdings\n\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "###### Deep", FormatHeader(9, "Deep"))
	assert.Equal(t, "# Low", FormatHeader(0, "Low"))
	assert.Equal(t, "- **Rows:** 3", FormatKeyValue("Rows", "3"))
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"rows": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 2, got["rows"])
}

func TestRenderer_Table(t *testing.T) {
	tbl := Table{
		Header:     []string{"Stock", "Quantity"},
		Rows:       [][]string{{"Samsung Electronics", "10"}, {"Apple", "2"}},
		RightAlign: []int{1},
		Caption:    "2 holdings",
	}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTest(ModeMarkdown, false)
		r.Table(tbl)
		assert.Contains(t, out.String(), "| Stock | Quantity |")
		assert.Contains(t, out.String(), "| Apple |")
		assert.NotContains(t, out.String(), "2 holdings")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTest(ModeText, false)
		r.Table(tbl)
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, out.String(), "Samsung Electronics")
		assert.Contains(t, out.String(), "2 holdings")
	})
}

func TestStyles_Tone(t *testing.T) {
	r, _, _ := newTest(ModeText, false)
	for _, tone := range []sheet.Tone{sheet.ToneDefault, sheet.ToneAlert, sheet.ToneAccent, sheet.ToneNeutral, sheet.ToneMuted} {
		assert.Equal(t, "+1.00%", r.Styles().Tone(tone).Render("+1.00%"), "tone %q", tone)
	}
}
