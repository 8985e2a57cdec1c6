package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_Precedence(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Diamond Stud Earrings", "Earring"},
		{"Solitaire Ring", "Ring"},
		{"Gold Kada", "Bracelet"},
		{"Diamond Bangle", "Bangle"},
		{"Watch Charm in Gold", "Watch Accessories"},
		{"Luxury Watch", "Watch"},
		{"Pendant with chain", "Pendant"},
		{"Nose Pin", "Nose Pin"},
		{"Mangalsutra Chain", "Mangalsutra"},
		{"Rope Chain", "Chain"},
		{"Tie Pin", "Brooches & Pins"},
		{"Anklet", "Anklet"},
		{"Cufflinks", "Cufflink"},
		{"Ankle Bracelet", "Bracelet"},
		{"Hair Pin", "Hair Pin"},
		{"Tanmaniya", "Tanmaniya"},
		{"Mang Tikka", "Mang Tikka"},
		{"Necklace with pendant", "Necklace"},
		{"Something Else", Others},
		{"", Others},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.text))
		})
	}
}

func TestMatch_IsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "Earring", Match("HOOPS"))
	assert.Equal(t, "Earring", Match("hoops"))
}

func TestClassify_Tiers(t *testing.T) {
	desc := "A delicate necklace"

	assert.Equal(t, "Earring",
		Classify("https://shop.example/diamond-earrings-123", "Bloom Necklace", &desc),
		"url tier wins")

	assert.Equal(t, "Necklace",
		Classify("https://shop.example/p/123", "Bloom Necklace", nil),
		"name tier when url says nothing")

	assert.Equal(t, "Necklace",
		Classify("https://shop.example/p/123", "Bloom", &desc),
		"description tier last")

	assert.Equal(t, Others, Classify("https://shop.example/p/123", "Bloom", nil))
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 18)
	assert.Equal(t, "Watch Accessories", names[0])
	assert.Equal(t, Others, names[len(names)-1])
}
