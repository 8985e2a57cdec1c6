package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

func assertDecimal(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected %s, got null", want)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "expected %s, got %s", want, got.Decimal)
}

func TestNormalize_RoseGoldMetalText(t *testing.T) {
	raw := models.RawAttributes{
		Name:       "Floral Diamond Ring",
		Attributes: map[string]string{"Metal": "18KT Rose Gold, Net weight: 4.250g"},
	}

	res := Normalize(raw)

	assert.Equal(t, models.MetalGold, res.Metal.Type)
	require.NotNil(t, res.Metal.Purity)
	assert.Equal(t, 18, *res.Metal.Purity)
	require.NotNil(t, res.Metal.Colour)
	assert.Equal(t, ColourRose, *res.Metal.Colour)
	assertDecimal(t, "4.25", res.Metal.Weight)
}

func TestNormalize_QualityToken(t *testing.T) {
	raw := models.RawAttributes{
		Name:       "Solitaire Pendant",
		Attributes: map[string]string{"Diamond Quality:": "VVS-EF"},
	}

	res := Normalize(raw)

	require.NotNil(t, res.Gemstone.Colour)
	require.NotNil(t, res.Gemstone.Clarity)
	assert.Equal(t, "VVS", *res.Gemstone.Colour)
	assert.Equal(t, "EF", *res.Gemstone.Clarity)
}

func TestNormalize_IsDeterministic(t *testing.T) {
	desc := "Crafted in 18KT white gold with SI-IJ diamonds"
	price := "₹ 1,24,500"
	raw := models.RawAttributes{
		Name:        "Eternity Band",
		Description: &desc,
		PriceText:   &price,
		Attributes: map[string]string{
			"Gross Weight":     "5.120 g",
			"Diamond Weight":   "0.45 ct",
			"No. of Diamonds":  "12 Nos + 6 Nos",
			"Metal Colour":     "White",
			"Karatage":         "18",
			"Total Diamond Wt": "ignored",
		},
	}

	first := Normalize(raw)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Normalize(raw))
	}
}

func TestNormalize_FullRecord(t *testing.T) {
	desc := "Crafted in 18KT white gold with SI-IJ diamonds"
	price := "₹ 1,24,500"
	raw := models.RawAttributes{
		Name:        "Eternity Band",
		Description: &desc,
		PriceText:   &price,
		Attributes: map[string]string{
			"Gross Weight":    "5.120 g",
			"Diamond Weight":  "0.45 ct",
			"No. of Diamonds": "12 Nos + 6 Nos",
		},
	}

	res := Normalize(raw)

	assert.Equal(t, models.MetalGold, res.Metal.Type)
	require.NotNil(t, res.Metal.Purity)
	assert.Equal(t, 18, *res.Metal.Purity)
	require.NotNil(t, res.Metal.Colour)
	assert.Equal(t, ColourWhite, *res.Metal.Colour)
	assert.False(t, res.Metal.Weight.Valid)

	assertDecimal(t, "5.12", res.ProductWeight)
	assertDecimal(t, "124500", res.Price)
	require.NotNil(t, res.Currency)
	assert.Equal(t, "INR", *res.Currency)

	require.NotNil(t, res.Gemstone.Colour)
	assert.Equal(t, "SI", *res.Gemstone.Colour)
	assert.Equal(t, "IJ", *res.Gemstone.Clarity)
	require.NotNil(t, res.Gemstone.Pieces)
	assert.Equal(t, 18, *res.Gemstone.Pieces)
	assertDecimal(t, "0.45", res.Gemstone.Weight)
}

func TestNormalize_EmptyInput(t *testing.T) {
	res := Normalize(models.RawAttributes{})

	assert.Equal(t, models.MetalOther, res.Metal.Type)
	assert.Nil(t, res.Metal.Purity)
	assert.Nil(t, res.Metal.Colour)
	assert.False(t, res.Metal.Weight.Valid)
	assert.Nil(t, res.Gemstone.Colour)
	assert.Nil(t, res.Gemstone.Clarity)
	assert.Nil(t, res.Gemstone.Pieces)
	assert.False(t, res.Gemstone.Weight.Valid)
	assert.False(t, res.ProductWeight.Valid)
	assert.False(t, res.Price.Valid)
	assert.Nil(t, res.Currency)
}

func TestNormalize_MalformedNumbersDegradeToNull(t *testing.T) {
	price := "Price on request"
	raw := models.RawAttributes{
		Name:      "Gold Chain",
		PriceText: &price,
		Attributes: map[string]string{
			"Purity":          "Hallmarked",
			"Gross Weight":    "1.2.3",
			"Metal Weight":    "..",
			"Diamond Weight":  "n/a",
			"No. of Diamonds": "0 Nos",
		},
	}

	res := Normalize(raw)

	assert.Equal(t, models.MetalGold, res.Metal.Type)
	assert.Nil(t, res.Metal.Purity)
	assert.False(t, res.ProductWeight.Valid)
	assert.False(t, res.Metal.Weight.Valid)
	assert.False(t, res.Gemstone.Weight.Valid)
	assert.Nil(t, res.Gemstone.Pieces)
	assert.False(t, res.Price.Valid)
}

func TestResultApply_KeepsDefaultCurrency(t *testing.T) {
	inr := "INR"
	rec := &models.ProductRecord{Currency: &inr}

	price := "12,000"
	Normalize(models.RawAttributes{Name: "Ring", PriceText: &price}).Apply(rec)

	require.NotNil(t, rec.Currency)
	assert.Equal(t, "INR", *rec.Currency)
	assertDecimal(t, "12000", rec.Price)
}

func TestNormalize_SiteLabelSets(t *testing.T) {
	type want struct {
		metal         models.MetalType
		purity        int
		metalColour   string
		metalWeight   string
		gemColour     string
		gemClarity    string
		pieces        int
		gemWeight     string
		productWeight string
	}

	tests := []struct {
		name  string
		title string
		attrs map[string]string
		want  want
	}{
		{
			name:  "pcjeweller",
			title: "Solitaire Ring",
			attrs: map[string]string{
				"Metal":                        "18KT Yellow Gold",
				"Metal Purity":                 "18",
				"Stone":                        "EF-VVS",
				"No of Pieces":                 "12",
				"Total Carat Weight (ct. wt.)": "0.45",
				"Product Weight (Approx)":      "3.2 g",
			},
			want: want{
				metal: models.MetalGold, purity: 18, metalColour: ColourYellow,
				gemColour: "EF", gemClarity: "VVS", pieces: 12, gemWeight: "0.45",
				productWeight: "3.2",
			},
		},
		{
			name:  "kalyan",
			title: "Floral Pendant",
			attrs: map[string]string{
				"metal name":             "18KT Yellow Gold",
				"purity":                 "18K",
				"metal weight":           "2.5g",
				"color":                  "EF",
				"clarity":                "VVS",
				"total no. of diamonds":  "8",
				"diamond weight(approx)": "0.25 ct",
			},
			want: want{
				metal: models.MetalGold, purity: 18, metalColour: ColourYellow, metalWeight: "2.5",
				gemColour: "EF", gemClarity: "VVS", pieces: 8, gemWeight: "0.25",
			},
		},
		{
			name:  "kalyan carat total",
			title: "Stud Earrings",
			attrs: map[string]string{
				"metal name":   "22KT Gold",
				"total weight": "0.300",
			},
			want: want{metal: models.MetalGold, purity: 22, gemWeight: "0.3"},
		},
		{
			name:  "gram total is not a carat weight",
			title: "Stud Earrings",
			attrs: map[string]string{
				"metal name":   "22KT Gold",
				"total weight": "5.2 g",
			},
			want: want{metal: models.MetalGold, purity: 22},
		},
		{
			name:  "orra",
			title: "Rose Gold Ring",
			attrs: map[string]string{
				"metal colour":        "Rose",
				"diamond quality":     "EF VVS",
				"diamonds (pcs)":      "8",
				"diamond weight (ct)": "0.25",
			},
			want: want{
				metal: models.MetalGold, metalColour: ColourRose,
				gemColour: "EF", gemClarity: "VVS", pieces: 8, gemWeight: "0.25",
			},
		},
		{
			name:  "tanishq",
			title: "Drop Earrings",
			attrs: map[string]string{
				"metal":           "Gold",
				"karatage":        "22",
				"material colour": "Yellow",
				"diamond color":   "GH",
				"diamond clarity": "SI",
				"diamond weight":  "0.120 ct",
				"gross weight":    "4.5 g",
			},
			want: want{
				metal: models.MetalGold, purity: 22, metalColour: ColourYellow,
				gemColour: "GH", gemClarity: "SI", gemWeight: "0.12", productWeight: "4.5",
			},
		},
		{
			name:  "bhimagold",
			title: "Gold Ring",
			attrs: map[string]string{
				"purity":         "22",
				"metal weight":   "3.1 g",
				"colour-clarity": "EF-VVS",
				"numbers":        "6",
				"gross weight":   "3.4",
			},
			want: want{
				metal: models.MetalGold, purity: 22, metalWeight: "3.1",
				gemColour: "EF", gemClarity: "VVS", pieces: 6, productWeight: "3.4",
			},
		},
	}

	optionalString := func(t *testing.T, want string, got *string) {
		t.Helper()
		if want == "" {
			assert.Nil(t, got)
			return
		}
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	}
	optionalInt := func(t *testing.T, want int, got *int) {
		t.Helper()
		if want == 0 {
			assert.Nil(t, got)
			return
		}
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	}
	optionalDecimal := func(t *testing.T, want string, got decimal.NullDecimal) {
		t.Helper()
		if want == "" {
			assert.False(t, got.Valid)
			return
		}
		assertDecimal(t, want, got)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(models.RawAttributes{Name: tt.title, Attributes: tt.attrs})

			assert.Equal(t, tt.want.metal, res.Metal.Type)
			optionalInt(t, tt.want.purity, res.Metal.Purity)
			optionalString(t, tt.want.metalColour, res.Metal.Colour)
			optionalDecimal(t, tt.want.metalWeight, res.Metal.Weight)
			optionalString(t, tt.want.gemColour, res.Gemstone.Colour)
			optionalString(t, tt.want.gemClarity, res.Gemstone.Clarity)
			optionalInt(t, tt.want.pieces, res.Gemstone.Pieces)
			optionalDecimal(t, tt.want.gemWeight, res.Gemstone.Weight)
			optionalDecimal(t, tt.want.productWeight, res.ProductWeight)
		})
	}
}
