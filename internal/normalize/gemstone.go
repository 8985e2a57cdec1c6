package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

var (
	piecesPattern       = regexp.MustCompile(`(?i)(\d+)\s*nos?\b`)
	integerPattern      = regexp.MustCompile(`\d+`)
	qualityTokenPattern = regexp.MustCompile(`\b([A-Z]{1,4}\d?)\s*-\s*([A-Z]{1,4}\d?)\b`)
	gradePattern        = regexp.MustCompile(`^[A-Z]{1,4}\d?$`)
)

// SplitQuality splits a combined grade token on its first hyphen: the left
// side is the colour grade and the right side the clarity grade. A token of
// exactly two grade words ("EF VVS") splits on the space instead.
func SplitQuality(token string) (colour, clarity *string) {
	token = strings.TrimSpace(token)
	if left, right, found := strings.Cut(token, "-"); found {
		return nonEmpty(left), nonEmpty(right)
	}
	if fields := strings.Fields(token); len(fields) == 2 &&
		gradePattern.MatchString(fields[0]) && gradePattern.MatchString(fields[1]) {
		return nonEmpty(fields[0]), nonEmpty(fields[1])
	}
	return nil, nil
}

// ParsePieces adds up "N nos" components ("12 nos + 6 nos") or, failing
// that, reads the first integer. Zero pieces is null.
func ParsePieces(text string) *int {
	total := 0
	matches := piecesPattern.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		total += n
	}
	if len(matches) == 0 {
		first := integerPattern.FindString(text)
		if first == "" {
			return nil
		}
		n, err := strconv.Atoi(first)
		if err != nil {
			return nil
		}
		total = n
	}
	if total <= 0 {
		return nil
	}
	return &total
}

// ResolveGemstone builds the full gemstone sub-record.
func ResolveGemstone(labels Labels, description *string) models.Gemstone {
	var gem models.Gemstone

	if c, ok := labels.Lookup(gemColourAliases...); ok {
		gem.Colour = nonEmpty(c)
	}
	if c, ok := labels.Lookup(gemClarityAliases...); ok {
		gem.Clarity = nonEmpty(c)
	}

	if gem.Colour == nil || gem.Clarity == nil {
		var colour, clarity *string
		if q, ok := labels.Lookup(qualityAliases...); ok {
			colour, clarity = SplitQuality(q)
		}
		if colour == nil && clarity == nil && description != nil {
			if m := qualityTokenPattern.FindStringSubmatch(*description); len(m) == 3 {
				colour, clarity = nonEmpty(m[1]), nonEmpty(m[2])
			}
		}
		if gem.Colour == nil {
			gem.Colour = colour
		}
		if gem.Clarity == nil {
			gem.Clarity = clarity
		}
	}

	if p, ok := labels.Lookup(piecesAliases...); ok {
		gem.Pieces = ParsePieces(p)
	}
	if w, ok := labels.Lookup(gemWeightAliases...); ok {
		gem.Weight = labelledWeight(w, Carats)
	} else if w, ok := labels.Lookup(gemTotalWeightAliases...); ok && !Grams(w).Valid {
		gem.Weight = labelledWeight(w, Carats)
	}

	return gem
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
