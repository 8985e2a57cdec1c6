package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

var metalKeywords = []struct {
	keyword string
	metal   models.MetalType
}{
	{"gold", models.MetalGold},
	{"platinum", models.MetalPlatinum},
	{"silver", models.MetalSilver},
}

// ResolveMetalType scans the texts in order; the first text naming a metal decides.
func ResolveMetalType(texts ...string) models.MetalType {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, k := range metalKeywords {
			if strings.Contains(lower, k.keyword) {
				return k.metal
			}
		}
	}
	return models.MetalOther
}

// fineness -> karat for gold hallmarks.
var goldFineness = map[int]int{
	917: 22, 916: 22,
	750: 18,
	585: 14, 583: 14,
	500: 12,
	417: 10, 416: 10,
	375: 9,
	333: 8,
}

var (
	karatPattern      = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d{1,2})\s*(?:k|kt|karat|karats)\b`)
	platinumPattern   = regexp.MustCompile(`(?i)\bpt\s*-?\s*(\d{3})\b`)
	threeDigitPattern = regexp.MustCompile(`\b(\d{3})\b`)
)

// ResolvePurity returns a karat value for gold and a fineness for platinum.
// The purity field may be a bare number; the context texts only count when
// they carry a karat marker or a hallmark. Anything unreadable is nil.
func ResolvePurity(metal models.MetalType, purityField string, context ...string) *int {
	if metal != models.MetalGold && metal != models.MetalPlatinum {
		return nil
	}
	if p := scanPurity(metal, purityField); p != nil {
		return p
	}
	if p := loosePurity(metal, purityField); p != nil {
		return p
	}
	for _, text := range context {
		if p := scanPurity(metal, text); p != nil {
			return p
		}
	}
	return nil
}

func scanPurity(metal models.MetalType, text string) *int {
	if text == "" {
		return nil
	}
	if metal == models.MetalPlatinum {
		if m := platinumPattern.FindStringSubmatch(text); len(m) == 2 {
			if v, ok := platinumFineness(m[1]); ok {
				return &v
			}
		}
	}

	if m := karatPattern.FindStringSubmatch(text); len(m) == 2 {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 && v <= 24 {
			return &v
		}
	}

	for _, m := range threeDigitPattern.FindAllStringSubmatch(text, -1) {
		v, _ := strconv.Atoi(m[1])
		if metal == models.MetalGold {
			if karat, ok := goldFineness[v]; ok {
				return &karat
			}
		} else if pt, ok := platinumFineness(m[1]); ok {
			return &pt
		}
	}
	return nil
}

// loosePurity strips everything but digits and reads what is left.
func loosePurity(metal models.MetalType, text string) *int {
	n := ParseNumber(text)
	if !n.Valid || !n.Decimal.IsInteger() {
		return nil
	}
	v := int(n.Decimal.IntPart())
	switch {
	case v > 0 && v <= 24:
		return &v
	case metal == models.MetalGold:
		if karat, ok := goldFineness[v]; ok {
			return &karat
		}
	case metal == models.MetalPlatinum:
		if v >= 800 && v <= 999 {
			return &v
		}
	}
	return nil
}

func platinumFineness(digits string) (int, bool) {
	v, err := strconv.Atoi(digits)
	if err != nil || v < 800 || v > 999 {
		return 0, false
	}
	return v, true
}

const (
	ColourYellow    = "Yellow"
	ColourWhite     = "White"
	ColourRose      = "Rose"
	ColourBlack     = "Black"
	ColourTwoTone   = "Two Tone"
	ColourThreeTone = "Three Tone"
)

// Checked top to bottom: multi-colour combinations come before single
// colours so "whiterose" is never read as White.
var colourTable = []struct {
	colour   string
	keywords []string
}{
	{ColourThreeTone, []string{
		"whiteroseyellow", "whiteyellowrose", "rosewhiteyellow",
		"roseyellowwhite", "yellowwhiterose", "yellowrosewhite",
		"threetone", "tritone", "3tone",
	}},
	{ColourTwoTone, []string{
		"whiterose", "whiteyellow", "rosewhite",
		"roseyellow", "yellowwhite", "yellowrose",
		"twotone", "dualtone", "2tone",
	}},
	{ColourYellow, []string{"yellow", "chocolate", "beige"}},
	{ColourWhite, []string{"white"}},
	{ColourRose, []string{"rose", "pink"}},
	{ColourBlack, []string{"black", "burnished"}},
}

var colourNoise = strings.NewReplacer(" ", "", "and", "", "-", "", "/", "", "+", "", ",", "", "&", "")

func colourKey(text string) string {
	return colourNoise.Replace(strings.ToLower(text))
}

// MatchColour maps free text onto the closed colour vocabulary.
func MatchColour(text string) *string {
	key := colourKey(text)
	if key == "" {
		return nil
	}
	for _, entry := range colourTable {
		for _, kw := range entry.keywords {
			if strings.Contains(key, kw) {
				colour := entry.colour
				return &colour
			}
		}
	}
	return nil
}

const colourWindow = 30

// colourBeforeGold looks only at the words leading up to "gold", which is
// where listings put the colour ("18KT White Gold Ring").
func colourBeforeGold(text string) *string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "gold")
	if idx <= 0 {
		return nil
	}
	start := idx - colourWindow
	if start < 0 {
		start = 0
	}
	return MatchColour(lower[start:idx])
}

// ResolveMetal builds the full metal sub-record.
func ResolveMetal(labels Labels, name string, description *string) models.Metal {
	desc := deref(description)
	metalField, _ := labels.Lookup(metalAliases...)
	purityField, _ := labels.Lookup(purityAliases...)
	colourField, _ := labels.Lookup(colourAliases...)

	metal := models.Metal{
		Type: ResolveMetalType(name, desc, metalField),
	}
	metal.Purity = ResolvePurity(metal.Type, purityField, metalField, name, desc)

	for _, text := range []string{colourField, metalField} {
		if c := MatchColour(text); c != nil {
			metal.Colour = c
			break
		}
	}
	if metal.Colour == nil {
		for _, text := range []string{name, desc} {
			if c := colourBeforeGold(text); c != nil {
				metal.Colour = c
				break
			}
		}
	}

	if w, ok := labels.Lookup(metalWeightAliases...); ok {
		metal.Weight = labelledWeight(w, Grams)
	}
	if !metal.Weight.Valid && metalField != "" {
		metal.Weight = Grams(metalField)
	}

	return metal
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
