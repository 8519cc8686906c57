// Package components renders the sheet UI. The markup lives in sheet.templ;
// run `templ generate` after editing it.
package components

import (
	"encoding/json"
	"strconv"

	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// GridID is the element id every grid patch targets.
const GridID = "sheet-grid"

// DatastarURL is the datastar client bundle.
const DatastarURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// GridData is everything the grid component renders.
type GridData struct {
	View      sheet.View
	Base      bool
	Dirty     bool
	Status    string
	StatusErr bool
	Totals    *core.StockAssetResponse
	// Stocks feeds the identifier lookup's suggestions.
	Stocks []core.StockRef
}

// pageSignals seeds the datastar signals the grid actions read.
func pageSignals(base bool) string {
	return `{"cell":"","text":"","target":"","active":"","over":"","dir":"","base":` + strconv.FormatBool(base) + `}`
}

type totalItem struct {
	label string
	value string
}

func totalItems(t *core.StockAssetResponse) []totalItem {
	return []totalItem{
		{"Total assets", portfolio.FormatMoney(t.TotalAssetAmount, portfolio.BaseCurrency)},
		{"Invested", portfolio.FormatMoney(t.TotalInvestAmount, portfolio.BaseCurrency)},
		{"Profit", portfolio.FormatMoney(t.TotalProfitAmount, portfolio.BaseCurrency)},
		{"Return", sheet.FormatPercent(t.TotalProfitRate)},
		{"Dividends", portfolio.FormatMoney(t.TotalDividendAmount, portfolio.BaseCurrency)},
	}
}

// minWidth is a datastar expression for a column width in characters.
func minWidth(chars int) string {
	return "'" + strconv.Itoa(chars) + "ch'"
}

func numericWidget(w sheet.Widget) bool {
	return w == sheet.WidgetNumber || w == sheet.WidgetCurrency
}

func cellClass(c sheet.CellView) string {
	class := "cell"
	switch c.Widget {
	case sheet.WidgetNumber, sheet.WidgetCurrency, sheet.WidgetPercent:
		class += " num"
	}
	if c.Tone != sheet.ToneDefault {
		class += " tone-" + string(c.Tone)
	}
	return class
}

// js quotes s as a JavaScript string literal.
func js(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func selectCell(key string) string { return "$cell = " + js(key) + "; " }

func clickAction(key string) string { return selectCell(key) + "@post('/sheet/click')" }

func inputAction(key string) string { return selectCell(key) + "@post('/sheet/input')" }

func commitAction(key string) string { return selectCell(key) + "@post('/sheet/commit')" }

// blurAction sends the cell receiving focus, if any, as the blur target.
func blurAction(key string) string {
	return selectCell(key) + "$target = evt.relatedTarget?.closest('[data-cell]')?.dataset.cell ?? ''; @post('/sheet/blur')"
}

func keydownAction(key string) string {
	return "if (evt.key === 'Enter') { " + commitAction(key) + " } else if (evt.key === 'Escape') { " +
		selectCell(key) + "@post('/sheet/cancel') }"
}

func deleteRowAction(rowID string) string {
	return "@delete('/sheet/rows/' + encodeURIComponent(" + js(rowID) + "))"
}
