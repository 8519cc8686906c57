package components_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/ui/features"
	"github.com/leapstack-labs/folio/internal/ui/features/grid/components"
	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func column(id string) sheet.Column {
	for _, c := range sheet.Catalog() {
		if c.ID == id {
			return c
		}
	}
	panic("unknown column " + id)
}

func sampleData() components.GridData {
	key := func(row, col string) sheet.CellKey { return sheet.CellKey{RowID: row, ColumnID: col} }
	return components.GridData{
		View: sheet.View{
			GridID: "g1",
			Header: []sheet.HeaderCell{
				{Column: column(sheet.ColStockName), Reorderable: true},
				{Column: column(sheet.ColQuantity), Reorderable: true},
				{Column: column(sheet.ActionColumnID)},
			},
			Rows: []sheet.RowView{
				{ID: "1", Dirty: true, Cells: []sheet.CellView{
					{Key: key("1", sheet.ColStockName), Widget: sheet.WidgetLookup, Text: "Apple", Code: "AAPL", Editable: true},
					{Key: key("1", sheet.ColQuantity), Widget: sheet.WidgetNumber, Editing: true, Buffer: "12", Editable: true},
					{Key: key("1", sheet.ActionColumnID), Widget: sheet.WidgetAction},
				}},
				{ID: "new-1", IsNew: true, Cells: []sheet.CellView{
					{Key: key("new-1", sheet.ColStockName), Widget: sheet.WidgetLookup, Hint: "Search stock", Editable: true},
					{Key: key("new-1", sheet.ColQuantity), Widget: sheet.WidgetNumber, Text: "Auto-calc", Placeholder: true, Tone: sheet.ToneMuted},
					{Key: key("new-1", sheet.ActionColumnID), Widget: sheet.WidgetAction},
				}},
			},
		},
		Status:    "Could not save <holdings>",
		StatusErr: true,
		Totals:    &core.StockAssetResponse{TotalProfitRate: 12.5},
		Stocks:    []core.StockRef{{Name: "Apple", Code: "AAPL"}},
	}
}

func render(t *testing.T, data components.GridData) (string, *html.Node) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, components.Grid(data).Render(context.Background(), &buf))
	return buf.String(), features.ParseHTML(t, buf.String())
}

func one(t *testing.T, doc *html.Node, name, value string) *html.Node {
	t.Helper()
	nodes := features.FindAll(doc, features.ByAttr(name, value))
	require.Len(t, nodes, 1, "%s=%q", name, value)
	return nodes[0]
}

func attr(n *html.Node, name string) string {
	v, _ := features.Attr(n, name)
	return v
}

func TestGrid_Markup(t *testing.T) {
	body, doc := render(t, sampleData())

	section := one(t, doc, "id", components.GridID)
	assert.Equal(t, "g1", attr(section, "data-grid"))

	var cols []string
	for _, th := range features.FindAll(doc, features.ByAttr("data-col", "")) {
		cols = append(cols, attr(th, "data-col"))
	}
	assert.Equal(t, []string{sheet.ColStockName, sheet.ColQuantity, sheet.ActionColumnID}, cols)
	assert.Equal(t, "true", attr(one(t, doc, "data-col", sheet.ColQuantity), "draggable"))
	assert.Equal(t, "pinned", attr(one(t, doc, "data-col", sheet.ActionColumnID), "class"))

	assert.Equal(t, "dirty", attr(one(t, doc, "data-row", "1"), "class"))
	assert.Equal(t, "new", attr(one(t, doc, "data-row", "new-1"), "class"))

	assert.Contains(t, body, "Could not save &lt;holdings&gt;", "text is escaped")
	assert.Equal(t, "status error", attr(one(t, doc, "id", "sheet-status"), "class"))
	assert.Contains(t, features.Text(one(t, doc, "class", "totals")), "12.5%")
}

func TestGrid_Cells(t *testing.T) {
	_, doc := render(t, sampleData())

	lookup := one(t, doc, "data-cell", "1|"+sheet.ColStockName)
	assert.Equal(t, "AppleAAPL", strings.TrimSpace(features.Text(lookup)))
	assert.Equal(t, "0", attr(lookup, "tabindex"))
	assert.Contains(t, attr(lookup, "data-on:click"), `$cell = "1|stock_name"`)

	editing := one(t, doc, "data-cell", "1|"+sheet.ColQuantity)
	assert.Equal(t, "cell num", attr(editing, "class"))
	_, ok := features.Attr(editing, "data-editing")
	assert.True(t, ok)
	inputs := features.FindAll(editing, func(n *html.Node) bool { return n.Data == "input" })
	require.Len(t, inputs, 1)
	assert.Equal(t, "12", attr(inputs[0], "value"))
	assert.Equal(t, "numeric", attr(inputs[0], "inputmode"))
	assert.Contains(t, attr(inputs[0], "data-on:keydown"), "@post('/sheet/cancel')")

	placeholder := one(t, doc, "data-cell", "new-1|"+sheet.ColQuantity)
	assert.Equal(t, "cell num tone-muted", attr(placeholder, "class"))
	_, ok = features.Attr(placeholder, "tabindex")
	assert.False(t, ok, "read-only cells are not focusable")
	assert.Equal(t, "Search stock", strings.TrimSpace(features.Text(one(t, doc, "data-cell", "new-1|"+sheet.ColStockName))))

	del := features.FindAll(one(t, doc, "data-cell", "new-1|"+sheet.ActionColumnID), features.ByAttr("data-on:click", ""))
	require.Len(t, del, 1)
	assert.Equal(t, `@delete('/sheet/rows/' + encodeURIComponent("new-1"))`, attr(del[0], "data-on:click"))
}

func TestGrid_SelectEditor(t *testing.T) {
	data := sampleData()
	data.View.Rows[0].Cells[1] = sheet.CellView{
		Key:     sheet.CellKey{RowID: "1", ColumnID: sheet.ColInvestmentBank},
		Widget:  sheet.WidgetSelect,
		Hint:    "Select bank",
		Choices: []string{"Mirae", "Toss"},
		Buffer:  "Toss",
		Editing: true,
	}
	_, doc := render(t, data)

	options := features.FindAll(one(t, doc, "data-cell", "1|"+sheet.ColInvestmentBank), func(n *html.Node) bool { return n.Data == "option" })
	require.Len(t, options, 3)
	assert.Equal(t, "Select bank", features.Text(options[0]))
	_, selected := features.Attr(options[2], "selected")
	assert.True(t, selected)
	_, selected = features.Attr(options[1], "selected")
	assert.False(t, selected)
}

func TestGrid_SaveDisabledWhenClean(t *testing.T) {
	data := sampleData()
	for _, dirty := range []bool{false, true} {
		data.Dirty = dirty
		_, doc := render(t, data)
		var save *html.Node
		for _, b := range features.FindAll(doc, features.ByAttr("data-on:click", "@post('/sheet/save')")) {
			save = b
		}
		require.NotNil(t, save)
		_, disabled := features.Attr(save, "disabled")
		assert.Equal(t, !dirty, disabled)
	}
}

func TestPage(t *testing.T) {
	var buf bytes.Buffer
	data := sampleData()
	data.Base = true
	require.NoError(t, components.Page("Holdings", data, "/sheet/updates").Render(context.Background(), &buf))
	body := buf.String()

	assert.True(t, strings.HasPrefix(body, "<!doctype html>"))
	assert.Contains(t, body, "<title>Holdings - Folio</title>")
	doc := features.ParseHTML(t, body)
	assert.Equal(t, "@get('/sheet/updates')", attr(one(t, doc, "data-init", ""), "data-init"))
	bodies := features.FindAll(doc, features.ByAttr("data-signals", ""))
	require.Len(t, bodies, 1)
	assert.Contains(t, attr(bodies[0], "data-signals"), `"base":true`)
	one(t, doc, "id", components.GridID)
}
