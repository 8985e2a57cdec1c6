// Package normalize turns the loosely labelled attributes a retailer page
// exposes into the canonical metal, gemstone, weight and price fields.
// Nothing here performs I/O or returns an error: text that cannot be read
// becomes a null field.
package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

type Result struct {
	Metal         models.Metal
	Gemstone      models.Gemstone
	ProductWeight decimal.NullDecimal
	Price         decimal.NullDecimal
	// Currency is set only when the price text names one.
	Currency *string
}

func Normalize(raw models.RawAttributes) Result {
	labels := NewLabels(raw.Attributes)

	res := Result{
		Metal:    ResolveMetal(labels, raw.Name, raw.Description),
		Gemstone: ResolveGemstone(labels, raw.Description),
	}

	if w, ok := labels.Lookup(productWeightAliases...); ok {
		res.ProductWeight = labelledWeight(w, Grams)
	}

	if raw.PriceText != nil {
		res.Price = ParsePrice(*raw.PriceText)
		if code, ok := DetectCurrency(*raw.PriceText); ok {
			res.Currency = &code
		}
	}

	return res
}

// Apply copies a result onto a record, keeping the record's default
// currency when the price text did not name one.
func (r Result) Apply(rec *models.ProductRecord) {
	rec.Metal = r.Metal
	rec.Gemstone = r.Gemstone
	rec.ProductWeight = r.ProductWeight
	rec.Price = r.Price
	if r.Currency != nil {
		rec.Currency = r.Currency
	}
}
