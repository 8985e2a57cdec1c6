// Package category maps product text onto the closed jewellery category set.
package category

import "strings"

const Others = "Others"

type entry struct {
	name     string
	keywords []string
}

// Declaration order is the precedence: the first category with any keyword
// contained in the text wins. Bracelet and Bangle both claim "kada"; Bracelet
// is declared first and keeps it.
var table = []entry{
	{"Watch Accessories", []string{
		"watch accessory", "watch-accessory", "watch accessories", "watch-accessories",
		"watch charm", "watch-charm", "watchcharm",
		"watchband", "watch-band", "watch band",
		"watch pin", "watchpin", "watch-pin",
	}},
	{"Tanmaniya", []string{"tanmaniya"}},
	{"Earring", []string{
		"earring", "hoop", "dangle", "climber", "stud", "huggie",
		"ear cuff", "ear-cuff", "earcuff",
		"ear clip", "earclip", "ear-clip",
	}},
	{"Necklace", []string{"necklace", "collier", "haram", "choker"}},
	{"Pendant", []string{"pendant", "charm", "cross", "letter", "medallion", "locket", "pendent"}},
	{"Nose Pin", []string{
		"nose pin", "nosepin", "nose-pin",
		"nose ring", "nosering", "nose-ring",
		"nose screw", "nosescrew", "nose-screw",
	}},
	{"Ring", []string{"ring", "band", "finger ring", "fingerring", "finger-ring"}},
	{"Cufflink", []string{"cufflink"}},
	{"Bracelet", []string{
		"bracelet",
		"hand chain", "handchain", "hand-chain",
		"hand piece", "handpiece", "hand-piece",
		"kada", "cuff",
	}},
	{"Watch", []string{"watch"}},
	{"Anklet", []string{"ankle bracelet", "anklet", "ankle", "ankle-bracelet"}},
	{"Hair Pin", []string{"hair pin", "hair-pin", "hairpin", "tiara", "crown"}},
	{"Mang Tikka", []string{"mang tikka", "mang-tikka", "mangtikka", "mang tika", "mangtika", "mang-tika"}},
	{"Mangalsutra", []string{"mangalsutra", "mangal sutra", "mangal-sutra"}},
	{"Bangle", []string{"bangle", "kada"}},
	{"Brooches & Pins", []string{"brooch", "pin", "collar pin", "collar-pin"}},
	{"Chain", []string{"chain"}},
}

// Names lists every category in precedence order, Others last.
func Names() []string {
	names := make([]string, 0, len(table)+1)
	for _, e := range table {
		names = append(names, e.name)
	}
	return append(names, Others)
}

// Match classifies a single text.
func Match(text string) string {
	lower := strings.ToLower(text)
	if lower == "" {
		return Others
	}
	for _, e := range table {
		for _, kw := range e.keywords {
			if strings.Contains(lower, kw) {
				return e.name
			}
		}
	}
	return Others
}

// Classify tries the URL, then the name, then the description when there is one.
func Classify(url, name string, description *string) string {
	if c := Match(url); c != Others {
		return c
	}
	if c := Match(name); c != Others {
		return c
	}
	if description != nil {
		return Match(*description)
	}
	return Others
}
