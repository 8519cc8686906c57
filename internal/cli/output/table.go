package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table is a rectangular result ready to render.
type Table struct {
	Header []string
	Rows   [][]string
	// RightAlign lists the zero-based columns holding numbers.
	RightAlign []int
	// Caption is written under text tables.
	Caption string
}

// Table writes t as a box-drawn table in text mode and a pipe table in
// markdown mode. JSON callers encode their own payloads.
func (r *Renderer) Table(t Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)

	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		tw.AppendRow(tr)
	}

	configs := make([]table.ColumnConfig, 0, len(t.RightAlign))
	for _, i := range t.RightAlign {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	if r.EffectiveMode() == ModeMarkdown {
		tw.Style().Format.Header = text.FormatDefault
		tw.RenderMarkdown()
		return
	}
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	if t.Caption != "" {
		tw.SetCaption(t.Caption)
	}
	tw.Render()
}
