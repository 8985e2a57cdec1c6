package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4.250g", "4.25"},
		{"  12 ", "12"},
		{"Rs. 500", "500"},
		{"1,250.50", "1250.5"},
		{"0.5.", "0.5"},
		{".5", "0.5"},
		{"wt .75", "0.75"},
		{"Rs.500", "500"},
		{"Rs.1,250.50", "1250.5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assertDecimal(t, tt.want, ParseNumber(tt.input))
		})
	}
}

func TestParseNumber_NullSafety(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "grams", "1.2.3", "...", ".", "-"} {
		t.Run(input, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, ParseNumber(input).Valid)
			})
		})
	}
}

func TestUnitWeights(t *testing.T) {
	assertDecimal(t, "4.25", Grams("Net weight: 4.250g"))
	assertDecimal(t, "3.142", Grams("3.14159 gms"))
	assertDecimal(t, "2", Grams("2 grams"))
	assertDecimal(t, "0.45", Carats("0.45 ct"))
	assertDecimal(t, "1.2", Carats("Total 1.20 Carats"))
	assertDecimal(t, "0.45", Carats(".45 ct"))
	assertDecimal(t, "0.75", Grams("Net wt .75 g"))

	assert.False(t, Grams("22 Gold").Valid)
	assert.False(t, Grams("0.000 g").Valid)
	assert.False(t, Carats("0 ct").Valid)
	assert.False(t, Carats("no stones").Valid)
}

func TestParsePrice(t *testing.T) {
	assertDecimal(t, "123456.5", ParsePrice("₹ 1,23,456.50"))
	assertDecimal(t, "89", ParsePrice("$89 USD"))
	assert.False(t, ParsePrice("Sold out").Valid)
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"₹ 45,000", "INR", true},
		{"Rs. 45,000", "INR", true},
		{"INR 45000", "INR", true},
		{"AED 1,200", "AED", true},
		{"$ 500", "USD", true},
		{"€ 99", "EUR", true},
		{"£ 99", "GBP", true},
		{"45,000", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := DetectCurrency(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
