package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	labelFolder = cases.Fold()
	stripMarks  = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// FoldLabel brings a site-specific attribute label to its lookup form:
// case folded, accents removed, trailing colon dropped, whitespace collapsed.
func FoldLabel(label string) string {
	folded := labelFolder.String(label)
	if stripped, _, err := transform.String(stripMarks, folded); err == nil {
		folded = stripped
	}
	folded = strings.TrimSpace(folded)
	folded = strings.TrimRight(folded, ": ")
	return strings.Join(strings.Fields(folded), " ")
}

// Labels is an attribute map keyed by folded labels. A missing key and a
// blank value are the same thing.
type Labels map[string]string

func NewLabels(attrs map[string]string) Labels {
	labels := make(Labels, len(attrs))
	for k, v := range attrs {
		key := FoldLabel(k)
		v = strings.TrimSpace(v)
		if key == "" || v == "" {
			continue
		}
		if _, exists := labels[key]; exists {
			continue
		}
		labels[key] = v
	}
	return labels
}

// Lookup returns the value of the first alias present.
func (l Labels) Lookup(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := l[alias]; ok {
			return v, true
		}
	}
	return "", false
}

// Label vocabularies, most specific first. Bare "colour" belongs to the
// gemstone side: where a site labels metal colour it always names the metal.
var (
	metalAliases  = []string{"metal", "metal type", "metal name", "material", "metal detail", "metal details"}
	purityAliases = []string{"purity", "karatage", "gold purity", "metal purity", "karat", "caratage"}
	colourAliases = []string{"metal colour", "metal color", "material colour", "material color"}

	metalWeightAliases   = []string{"metal weight", "gold weight", "net weight", "net wt", "metal wt"}
	productWeightAliases = []string{
		"gross weight", "product weight", "product weight (approx)", "product weight(approx)",
		"weight", "gross wt",
	}

	qualityAliases = []string{
		"diamond quality", "quality", "stone quality", "colour-clarity", "color-clarity",
		"colorclarity", "colourclarity", "type", "stone",
	}
	gemColourAliases  = []string{"diamond colour", "diamond color", "stone colour", "stone color", "colour", "color"}
	gemClarityAliases = []string{"diamond clarity", "clarity", "stone clarity"}
	piecesAliases     = []string{
		"pieces", "no. of diamonds", "total no. of diamonds", "number of diamonds", "numbers",
		"diamond pieces", "no of stones", "no of pieces", "no. of pieces", "diamonds (pcs)", "diamonds(pcs)",
	}
	gemWeightAliases = []string{
		"diamond weight", "total diamond weight", "carat weight", "diamond wt", "stone weight",
		"diamond weight (ct)", "diamond weight(ct)", "diamond weight (approx)", "diamond weight(approx)",
		"total carat weight (ct. wt.)", "total carat weight", "total carat weight(ct. wt.)",
	}
	// Diamond tables that call their carat total "total weight"; read only
	// when the value is not written in grams.
	gemTotalWeightAliases = []string{"total weight"}
)
