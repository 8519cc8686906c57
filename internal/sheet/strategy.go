package sheet

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/folio/pkg/core"
)

// Widget is the display/edit affordance a front end renders for a cell.
type Widget string

// Widgets.
const (
	WidgetText     Widget = "text"
	WidgetLookup   Widget = "lookup"
	WidgetNumber   Widget = "number"
	WidgetDate     Widget = "date"
	WidgetSelect   Widget = "select"
	WidgetPercent  Widget = "percent"
	WidgetCurrency Widget = "currency"
	WidgetAction   Widget = "action"
)

// Options are the externally supplied candidate lists.
type Options struct {
	Banks    []string
	Accounts []string
	Stocks   []core.StockRef
}

// CellContext is everything a strategy may read to render or edit a cell.
type CellContext struct {
	Column  Column
	Row     Row
	Value   Value
	Options Options
	Policy  SignPolicy
}

// IsKRW reports whether the row was purchased in won.
func (c CellContext) IsKRW() bool {
	return c.Row.Get(ColCurrencyType).Text() == core.CurrencyKRW
}

// CellView is the rendered state of one cell.
type CellView struct {
	Key    CellKey
	Widget Widget
	// Text is the display text. When Placeholder is set it is a fixed message
	// rather than a value.
	Text        string
	Placeholder bool
	// Hint is shown by inputs whose Text is empty.
	Hint     string
	Tone     Tone
	Editable bool
	// Code is an identifier's cross-reference code.
	Code    string
	Choices []string
	// Editing and Elevated reflect the cell's edit session.
	Editing  bool
	Elevated bool
	// Buffer is the uncommitted input while editing.
	Buffer string
}

// Strategy renders and edits the cells of one column kind.
type Strategy interface {
	Widget() Widget
	Render(c CellContext) CellView
	// Accept reports whether input may replace the edit buffer.
	Accept(c CellContext, input string) bool
	// EditText is the buffer a new edit session starts with.
	EditText(c CellContext) string
	// Commit writes a buffer into the row.
	Commit(c CellContext, row *Row, text string)
}

// StrategyFor binds a column to its strategy. Unknown types render as
// read-only passthrough text.
func StrategyFor(col Column) Strategy {
	switch col.Type {
	case TypeIdentifier:
		code := col.CodeField
		if code == "" {
			code = ColStockCode
		}
		return lookupStrategy{codeField: code}
	case TypeQuantity:
		return numberStrategy{}
	case TypeDate:
		return dateStrategy{}
	case TypeBank:
		return selectStrategy{choices: func(o Options) []string { return o.Banks }}
	case TypeAccountType:
		return selectStrategy{choices: func(o Options) []string { return o.Accounts }}
	case TypePercentage:
		return percentStrategy{}
	case TypeCurrency:
		return currencyStrategy{}
	case TypeCurrencyDerived:
		return currencyStrategy{auto: true, dividend: col.Dividend}
	case TypeAction:
		return actionStrategy{}
	default:
		return passthroughStrategy{}
	}
}

var digitsOnly = regexp.MustCompile(`^\d*$`)

// dateMask accepts the prefixes of a YYYY-MM-DD date.
var dateMask = regexp.MustCompile(`^\d{0,4}(-(\d{0,2}(-\d{0,2})?)?)?$`)

type readOnly struct{}

func (readOnly) Accept(CellContext, string) bool  { return false }
func (readOnly) EditText(CellContext) string      { return "" }
func (readOnly) Commit(CellContext, *Row, string) {}

// passthroughStrategy renders the raw value.
type passthroughStrategy struct{ readOnly }

func (passthroughStrategy) Widget() Widget { return WidgetText }

func (passthroughStrategy) Render(c CellContext) CellView {
	return CellView{Widget: WidgetText, Text: c.Value.Text()}
}

// lookupStrategy edits a stock name and resolves its code from the catalogue.
type lookupStrategy struct {
	codeField string
}

func (lookupStrategy) Widget() Widget { return WidgetLookup }

func (s lookupStrategy) Render(c CellContext) CellView {
	names := make([]string, len(c.Options.Stocks))
	for i, st := range c.Options.Stocks {
		names[i] = st.Name
	}
	return CellView{
		Widget:   WidgetLookup,
		Text:     c.Value.Text(),
		Hint:     "Search stock",
		Editable: true,
		Code:     c.Row.Get(s.codeField).Text(),
		Choices:  names,
	}
}

func (lookupStrategy) Accept(_ CellContext, input string) bool {
	return !strings.ContainsAny(input, "\r\n")
}

func (lookupStrategy) EditText(c CellContext) string { return c.Value.Text() }

// Commit resolves the code of the committed name. A name outside the
// catalogue clears the code so the row cannot be saved against the stock it
// named before.
func (s lookupStrategy) Commit(c CellContext, row *Row, text string) {
	row.Set(c.Column.ID, String(text))
	name := strings.TrimSpace(text)
	for _, st := range c.Options.Stocks {
		if strings.EqualFold(st.Name, name) {
			row.Set(s.codeField, String(st.Code))
			return
		}
	}
	if strings.EqualFold(strings.TrimSpace(c.Value.Text()), name) {
		return
	}
	row.Set(s.codeField, Null())
}

// numberStrategy edits whole numbers.
type numberStrategy struct{}

func (numberStrategy) Widget() Widget { return WidgetNumber }

func (numberStrategy) Render(c CellContext) CellView {
	return CellView{Widget: WidgetNumber, Text: c.Value.Text(), Hint: "0", Editable: true}
}

func (numberStrategy) Accept(_ CellContext, input string) bool {
	return digitsOnly.MatchString(input)
}

func (numberStrategy) EditText(c CellContext) string {
	return gatedText(c.Value.Text())
}

func (numberStrategy) Commit(c CellContext, row *Row, text string) {
	row.Set(c.Column.ID, digitsValue(text))
}

// dateStrategy delegates to the date widget's YYYY-MM-DD mask.
type dateStrategy struct{}

func (dateStrategy) Widget() Widget { return WidgetDate }

func (dateStrategy) Render(c CellContext) CellView {
	return CellView{Widget: WidgetDate, Text: c.Value.Text(), Hint: "YYYY-MM-DD", Editable: true}
}

func (dateStrategy) Accept(_ CellContext, input string) bool {
	return dateMask.MatchString(input)
}

func (s dateStrategy) EditText(c CellContext) string {
	if t := c.Value.Text(); dateMask.MatchString(t) {
		return t
	}
	return ""
}

func (dateStrategy) Commit(c CellContext, row *Row, text string) {
	if text == "" {
		row.Set(c.Column.ID, Null())
		return
	}
	row.Set(c.Column.ID, String(text))
}

// selectStrategy picks one value from an externally supplied list.
type selectStrategy struct {
	choices func(Options) []string
}

func (selectStrategy) Widget() Widget { return WidgetSelect }

func (s selectStrategy) Render(c CellContext) CellView {
	return CellView{
		Widget:   WidgetSelect,
		Text:     c.Value.Text(),
		Hint:     "Select",
		Editable: true,
		Choices:  s.choices(c.Options),
	}
}

func (s selectStrategy) Accept(c CellContext, input string) bool {
	if input == "" {
		return true
	}
	for _, v := range s.choices(c.Options) {
		if v == input {
			return true
		}
	}
	return false
}

func (selectStrategy) EditText(c CellContext) string { return c.Value.Text() }

func (selectStrategy) Commit(c CellContext, row *Row, text string) {
	row.Set(c.Column.ID, String(text))
}

// percentStrategy displays a read-only rate.
type percentStrategy struct{ readOnly }

func (percentStrategy) Widget() Widget { return WidgetPercent }

func (percentStrategy) Render(c CellContext) CellView {
	if c.Row.IsNew {
		return CellView{Widget: WidgetPercent, Text: PlaceholderAutoCalc, Placeholder: true, Tone: ToneMuted}
	}
	// null renders as a neutral zero
	rate, _ := c.Value.Float()
	return CellView{Widget: WidgetPercent, Text: FormatPercent(rate), Tone: c.Policy.ToneFor(rate)}
}

// currencyStrategy is either a numeric-only editable amount or an
// auto-calculated read-only amount.
type currencyStrategy struct {
	auto     bool
	dividend bool
}

func (currencyStrategy) Widget() Widget { return WidgetCurrency }

func (s currencyStrategy) Render(c CellContext) CellView {
	isKRW := c.IsKRW()
	hint := CurrencyPrefix(isKRW) + "0"
	if !s.auto {
		v := CellView{Widget: WidgetCurrency, Hint: hint, Editable: true}
		if c.Value.Truthy() {
			v.Text = CurrencyPrefix(isKRW) + c.Value.Text()
		}
		return v
	}

	switch {
	case c.Row.IsNew:
		return CellView{Widget: WidgetCurrency, Text: PlaceholderAutoCalc, Placeholder: true, Tone: ToneMuted}
	case s.dividend && !c.Value.Truthy():
		return CellView{Widget: WidgetCurrency, Text: PlaceholderNoDividend, Placeholder: true, Tone: ToneMuted}
	}
	if f, ok := c.Value.Float(); ok && f != 0 {
		return CellView{Widget: WidgetCurrency, Text: FormatCurrency(f, isKRW)}
	}
	return CellView{Widget: WidgetCurrency, Hint: hint}
}

func (s currencyStrategy) Accept(_ CellContext, input string) bool {
	return !s.auto && digitsOnly.MatchString(input)
}

func (s currencyStrategy) EditText(c CellContext) string {
	if s.auto {
		return ""
	}
	return gatedText(c.Value.Text())
}

func (s currencyStrategy) Commit(c CellContext, row *Row, text string) {
	if s.auto {
		return
	}
	row.Set(c.Column.ID, digitsValue(text))
}

// actionStrategy renders the pinned row action.
type actionStrategy struct{ readOnly }

func (actionStrategy) Widget() Widget { return WidgetAction }

func (actionStrategy) Render(CellContext) CellView {
	return CellView{Widget: WidgetAction}
}

// gatedText keeps a value's text only when it already passes the digit gate,
// so an edit never starts from a buffer it could not have typed.
func gatedText(s string) string {
	if digitsOnly.MatchString(s) {
		return s
	}
	return ""
}

func digitsValue(text string) Value {
	if text == "" {
		return Null()
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return String(text)
	}
	return Number(float64(n))
}
