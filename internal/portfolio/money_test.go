package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	u, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", u.String())

	_, err = ParseCurrency("XYZW")
	assert.Error(t, err)
}

func TestConverter(t *testing.T) {
	c := NewConverter(map[string]float64{"USD_KRW": 1300})

	tests := []struct {
		name     string
		from, to string
		in, want float64
		ok       bool
	}{
		{"same currency", "KRW", "KRW", 5, 5, true},
		{"direct", "USD", "KRW", 2, 2600, true},
		{"inverse", "KRW", "USD", 2600, 2, true},
		{"unknown pair", "EUR", "KRW", 3, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Convert(tt.in, tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "KRW 1,234,567", FormatMoney(1234567, "KRW"))
	assert.Equal(t, "USD 1,234.50", FormatMoney(1234.5, "USD"))
}
