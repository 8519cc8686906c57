package sheet

import (
	"math"
	"strconv"
)

// Fixed cell messages.
const (
	PlaceholderAutoCalc   = "Auto-calculated field"
	PlaceholderNoDividend = "No dividend for this holding"
)

// CurrencyPrefix returns the display prefix for a holding.
func CurrencyPrefix(isKRW bool) string {
	if isKRW {
		return "₩ "
	}
	return "$ "
}

// RoundCents rounds half up to two decimals.
func RoundCents(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// FormatNumber renders v with the fewest digits that represent it.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPercent renders a rate rounded to two decimals with a % suffix.
func FormatPercent(v float64) string {
	return FormatNumber(RoundCents(v)) + "%"
}

// FormatCurrency renders an amount rounded to two decimals behind the prefix.
func FormatCurrency(v float64, isKRW bool) string {
	return CurrencyPrefix(isKRW) + FormatNumber(RoundCents(v))
}
