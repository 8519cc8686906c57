package portfolio

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ParseCurrency validates an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	u, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return u, nil
}

// Converter converts amounts between currencies with a rate table keyed by
// core.RateKey. Missing direct rates fall back to the inverse pair.
type Converter struct {
	rates map[string]float64
}

// NewConverter returns a converter over rates.
func NewConverter(rates map[string]float64) Converter {
	return Converter{rates: rates}
}

// Rate returns the factor converting from into to.
func (c Converter) Rate(from, to string) (float64, bool) {
	if from == "" || to == "" || from == to {
		return 1, true
	}
	if r, ok := c.rates[from+"_"+to]; ok && r != 0 {
		return r, true
	}
	if r, ok := c.rates[to+"_"+from]; ok && r != 0 {
		return 1 / r, true
	}
	return 1, false
}

// Convert converts v. Unknown pairs convert at 1 and report false.
func (c Converter) Convert(v float64, from, to string) (float64, bool) {
	r, ok := c.Rate(from, to)
	return v * r, ok
}

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with grouping and the currency's standard
// number of decimals, e.g. "KRW 1,234,567" or "USD 1,234.50".
func FormatMoney(v float64, code string) string {
	u, err := ParseCurrency(code)
	if err != nil {
		return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
	}
	scale, _ := currency.Standard.Rounding(u)
	return printer.Sprintf("%s %v", u, number.Decimal(v, number.Scale(scale)))
}
