// Package parser reads retailer HTML with goquery: product links from
// listing pages and raw attributes from product pages. What to read is
// given by CSS selectors, so one parser serves every site.
package parser

import (
	"errors"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

var (
	ErrNameNotFound = errors.New("product name not found")
	ErrNoSelector   = errors.New("selector is empty")
)

type Parser interface {
	ParseListing(html, pageURL string) ([]string, error)
	ParseDetail(html, pageURL string) (*models.RawAttributes, error)
}

// DetailSelectors locate the fields of a product page.
type DetailSelectors struct {
	Name        string   `yaml:"name"`
	Price       string   `yaml:"price"`
	PriceAttr   string   `yaml:"price_attr"`
	Description []string `yaml:"description"`
	Image       string   `yaml:"image"`
	ImageAttr   string   `yaml:"image_attr"`

	// Each row holds one label/value pair. Without Label and Value
	// selectors the row text is split on its first colon.
	Rows  string `yaml:"rows"`
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}
