package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const weightPlaces = 3

var (
	gramPattern  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?|\.\d+)\s*(?:grams?|gms?|g)\b`)
	caratPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?|\.\d+)\s*(?:carats?|cts?)\b`)
	pricePattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// ParseNumber keeps only digits and decimal points and parses what is left.
// Empty input, text without digits and several decimal points all give null.
// A dot ahead of the first digit is kept only when it opens a fraction
// (".5"); an abbreviation dot such as "Rs.500" is dropped.
func ParseNumber(text string) decimal.NullDecimal {
	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if b.Len() == 0 && !opensFraction(runes, i) {
				continue
			}
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimRight(b.String(), ".")
	if cleaned == "" || strings.Count(cleaned, ".") > 1 {
		return decimal.NullDecimal{}
	}
	return parseDecimal(cleaned)
}

// opensFraction reports whether the dot at i is directly followed by a digit
// and not preceded by a letter.
func opensFraction(runes []rune, i int) bool {
	if i+1 >= len(runes) || !unicode.IsDigit(runes[i+1]) {
		return false
	}
	return i == 0 || !unicode.IsLetter(runes[i-1])
}

func parseDecimal(s string) decimal.NullDecimal {
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParsePrice reads the first number of a price label such as "₹ 1,23,456.50".
func ParsePrice(text string) decimal.NullDecimal {
	match := pricePattern.FindString(text)
	if match == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Grams finds a number written next to a gram unit.
func Grams(text string) decimal.NullDecimal {
	return unitValue(gramPattern, text)
}

// Carats finds a number written next to a carat unit.
func Carats(text string) decimal.NullDecimal {
	return unitValue(caratPattern, text)
}

func unitValue(pattern *regexp.Regexp, text string) decimal.NullDecimal {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return decimal.NullDecimal{}
	}
	return positive(parseDecimal(m[1]))
}

// labelledWeight reads a weight field: unit-adjacent number first, then any number.
func labelledWeight(text string, byUnit func(string) decimal.NullDecimal) decimal.NullDecimal {
	if w := byUnit(text); w.Valid {
		return w
	}
	return positive(ParseNumber(text))
}

// positive rounds to three places and turns zero into null.
func positive(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	rounded := d.Decimal.Round(weightPlaces)
	if !rounded.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(rounded)
}

var currencyMarkers = []struct {
	code    string
	markers []string
}{
	{"INR", []string{"₹", "INR", "RS.", "RS "}},
	{"AED", []string{"AED", "د.إ"}},
	{"EUR", []string{"€", "EUR"}},
	{"GBP", []string{"£", "GBP"}},
	{"USD", []string{"USD", "US$", "$"}},
}

// DetectCurrency returns the ISO code a price label is written in, if it says.
func DetectCurrency(text string) (string, bool) {
	upper := strings.ToUpper(text) + " "
	for _, c := range currencyMarkers {
		for _, marker := range c.markers {
			if strings.Contains(upper, marker) {
				return c.code, true
			}
		}
	}
	return "", false
}
