package listing

import (
	"fmt"
	"strings"
)

// PriceType distinguishes asking prices from completed-sale prices.
type PriceType string

const (
	// PriceTypeListing is an active asking price (the default).
	PriceTypeListing PriceType = "listing"
	// PriceTypeSold is a completed-sale price.
	PriceTypeSold PriceType = "sold"
)

// CurrencyUnknown marks a listing whose currency could not be detected.
const CurrencyUnknown = "UNKNOWN"

// Listing is the normalized record every scraper must produce.
// It is created once from raw page or JSON content and never
// mutated afterwards.
type Listing struct {
	// ProductName is the listing title, trimmed and non-empty.
	ProductName string

	// Price is the numeric price in the scraper's native currency.
	// Always > 0; an unparseable or non-positive price means the
	// candidate is dropped at the scraper boundary, never emitted.
	Price float64

	// Source is the stable identifier of the originating scraper.
	Source string

	// PriceType defaults to PriceTypeListing.
	PriceType PriceType

	// URL is the absolute listing URL when known, empty otherwise.
	URL string

	// Currency is an ISO-ish code or CurrencyUnknown.
	Currency string
}

// New builds a Listing with defaults applied.
func New(productName string, price float64, source string) Listing {
	return Listing{
		ProductName: strings.TrimSpace(productName),
		Price:       price,
		Source:      source,
		PriceType:   PriceTypeListing,
		Currency:    CurrencyUnknown,
	}
}

// Valid reports whether the listing satisfies the boundary invariants:
// non-empty trimmed title, positive price, non-empty source.
func (l Listing) Valid() bool {
	return strings.TrimSpace(l.ProductName) != "" && l.Price > 0 && l.Source != ""
}

// DedupeKey returns the within-scraper deduplication key: the same
// normalized title, price and URL count as one listing.
func (l Listing) DedupeKey() string {
	return fmt.Sprintf("%s|%.2f|%s", strings.ToLower(strings.TrimSpace(l.ProductName)), l.Price, l.URL)
}
