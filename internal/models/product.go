package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Flag string

const (
	FlagNew      Flag = "New"
	FlagExisting Flag = "Existing"
	FlagDeleted  Flag = "Deleted"
)

func (f Flag) Valid() bool {
	switch f {
	case FlagNew, FlagExisting, FlagDeleted:
		return true
	}
	return false
}

type MetalType string

const (
	MetalGold     MetalType = "Gold"
	MetalPlatinum MetalType = "Platinum"
	MetalSilver   MetalType = "Silver"
	MetalOther    MetalType = "Other"
)

// ProductRecord is the canonical row for one product of one source site.
// (SourceSite, URL) is the identity and never changes once stored.
type ProductRecord struct {
	SourceSite  string  `json:"source_site"`
	Country     string  `json:"country"`
	Company     string  `json:"company"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	ImageRef    string  `json:"image_ref"`
	Category    string  `json:"category"`
	Description *string `json:"description"`

	Price    decimal.NullDecimal `json:"price"`
	Currency *string             `json:"currency"`

	ProductWeight decimal.NullDecimal `json:"product_weight"`

	Metal    Metal    `json:"metal"`
	Gemstone Gemstone `json:"gemstone"`

	Flag      Flag      `json:"flag"`
	SeenCount int       `json:"seen_count"`
	RunDate   time.Time `json:"run_date"`

	ConvertedPrices map[string]decimal.Decimal `json:"converted_prices,omitempty"`
}

type Metal struct {
	Type   MetalType           `json:"type"`
	Colour *string             `json:"colour"`
	Purity *int                `json:"purity"`
	Weight decimal.NullDecimal `json:"weight"`
}

type Gemstone struct {
	Colour  *string             `json:"colour"`
	Clarity *string             `json:"clarity"`
	Pieces  *int                `json:"pieces"`
	Weight  decimal.NullDecimal `json:"weight"`
}

// Key identifies a record within its source site.
func (p *ProductRecord) Key() string {
	return p.URL
}

// RawAttributes is what a site adapter hands back for one product page.
// Attributes keys are whatever labels the site uses; the normalizer folds them.
type RawAttributes struct {
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	ImageRef    string            `json:"image_ref"`
	PriceText   *string           `json:"price_text"`
	Attributes  map[string]string `json:"attributes"`
}

// ScrapeRun is the history row written alongside each committed run.
type ScrapeRun struct {
	ID         string     `json:"id"`
	SourceSite string     `json:"source_site"`
	RunDate    time.Time  `json:"run_date"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	Candidates int        `json:"candidates"`
	Created    int        `json:"created"`
	Reseen     int        `json:"reseen"`
	Deleted    int        `json:"deleted"`
	Skipped    int        `json:"skipped"`
}

type RunStatus string

const (
	RunCompleted  RunStatus = "completed"
	RunTerminated RunStatus = "terminated"
	RunFailed     RunStatus = "failed"
)

func StringPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}
