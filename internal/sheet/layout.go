package sheet

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/folio/pkg/core"
	"gopkg.in/yaml.v3"
)

// Column ids of the stock sheet.
const (
	ColStockName      = "stock_name"
	ColStockCode      = "stock_code"
	ColQuantity       = "quantity"
	ColBuyDate        = "buy_date"
	ColInvestmentBank = "investment_bank"
	ColAccountType    = "account_type"
	ColProfitRate     = "profit_rate"
	ColPurchasePrice  = "purchase_price"
	ColPurchaseAmount = "purchase_amount"
	ColProfitAmount   = "profit_amount"
	ColCurrentPrice   = "current_price"
	ColOpeningPrice   = "opening_price"
	ColHighestPrice   = "highest_price"
	ColLowestPrice    = "lowest_price"
	ColStockVolume    = "stock_volume"
	ColDividend       = "dividend"
	ColCurrencyType   = "purchase_currency_type"
)

// Catalog returns every column the stock sheet knows how to show, in
// canonical order, ending with the pinned action column.
func Catalog() []Column {
	return []Column{
		{ID: ColStockName, Label: "Stock", Type: TypeIdentifier, Width: 20, CodeField: ColStockCode},
		{ID: ColQuantity, Label: "Quantity", Type: TypeQuantity, Width: 10},
		{ID: ColBuyDate, Label: "Buy Date", Type: TypeDate, Width: 12},
		{ID: ColInvestmentBank, Label: "Brokerage", Type: TypeBank, Width: 18},
		{ID: ColAccountType, Label: "Account", Type: TypeAccountType, Width: 16},
		{ID: ColProfitRate, Label: "Return", Type: TypePercentage, Width: 10},
		{ID: ColPurchasePrice, Label: "Buy Price", Type: TypeCurrency, Width: 14},
		{ID: ColPurchaseAmount, Label: "Invested", Type: TypeCurrency, Width: 14},
		{ID: ColProfitAmount, Label: "Profit", Type: TypeCurrencyDerived, Width: 14},
		{ID: ColCurrentPrice, Label: "Price", Type: TypeCurrencyDerived, Width: 14},
		{ID: ColOpeningPrice, Label: "Open", Type: TypeCurrencyDerived, Width: 14},
		{ID: ColHighestPrice, Label: "High", Type: TypeCurrencyDerived, Width: 14},
		{ID: ColLowestPrice, Label: "Low", Type: TypeCurrencyDerived, Width: 14},
		{ID: ColStockVolume, Label: "Volume", Type: TypeQuantity, Width: 12},
		{ID: ColDividend, Label: "Dividend", Type: TypeCurrencyDerived, Width: 16, Dividend: true},
		{ID: ActionColumnID, Label: "+", Type: TypeAction, Width: 3, Pinned: true},
	}
}

// defaultVisible are the columns shown when no field configuration exists.
var defaultVisible = []string{
	ColStockName, ColQuantity, ColBuyDate, ColInvestmentBank, ColAccountType,
	ColProfitRate, ColOpeningPrice, ColHighestPrice, ColLowestPrice,
}

// DefaultColumns returns the default sheet layout.
func DefaultColumns() []Column {
	return pick(defaultVisible)
}

// DefaultSchema returns the schema of the default layout.
func DefaultSchema() *Schema {
	return MustSchema(DefaultColumns())
}

// DefaultFields returns the field configuration matching DefaultColumns.
func DefaultFields() []core.AssetField {
	visible := make(map[string]bool, len(defaultVisible))
	for _, id := range defaultVisible {
		visible[id] = true
	}
	var fields []core.AssetField
	for _, c := range Catalog() {
		if c.Pinned {
			continue
		}
		fields = append(fields, core.AssetField{
			Name:     c.ID,
			Required: c.ID == ColStockName,
			Checked:  visible[c.ID],
		})
	}
	return fields
}

// ColumnsFromFields selects the checked catalogue columns of a field
// configuration. Required fields are always shown and unknown names are
// ignored. The action column is appended.
func ColumnsFromFields(fields []core.AssetField) []Column {
	var ids []string
	for _, f := range fields {
		if f.Checked || f.Required {
			ids = append(ids, f.Name)
		}
	}
	if len(ids) == 0 {
		return DefaultColumns()
	}
	return pick(ids)
}

func pick(ids []string) []Column {
	byID := make(map[string]Column)
	var action Column
	for _, c := range Catalog() {
		if c.Pinned {
			action = c
			continue
		}
		byID[c.ID] = c
	}
	cols := make([]Column, 0, len(ids)+1)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		cols = append(cols, c)
	}
	return append(cols, action)
}

// layoutFile is the on-disk shape of a sheet layout.
type layoutFile struct {
	Columns []Column `yaml:"columns"`
}

// LoadLayout reads a YAML layout file and validates it into a Schema.
// When the layout has no pinned column the action column is appended.
func LoadLayout(path string) (*Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: layout path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
	}
	return ParseLayout(data)
}

// ParseLayout parses YAML layout content.
func ParseLayout(data []byte) (*Schema, error) {
	var lf layoutFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if len(lf.Columns) == 0 {
		return nil, fmt.Errorf("layout defines no columns")
	}
	cols := lf.Columns
	hasPinned := false
	for _, c := range cols {
		if c.Pinned || c.Type == TypeAction {
			hasPinned = true
		}
	}
	if !hasPinned {
		cols = append(cols, Column{ID: ActionColumnID, Label: "+", Type: TypeAction, Pinned: true})
	}
	return NewSchema(cols)
}

// MarshalLayout renders columns as layout YAML.
func MarshalLayout(cols []Column) ([]byte, error) {
	return yaml.Marshal(layoutFile{Columns: cols})
}
