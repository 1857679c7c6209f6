package testutil

import (
	"context"

	"pricescout/internal/listing"
	"pricescout/internal/scraper"
)

// MockScraper is a mock implementation of the Scraper interface for testing
type MockScraper struct {
	SourceFunc func() string
	SearchFunc func(ctx context.Context, query string) ([]listing.Listing, error)
}

// Source implements the Scraper interface
func (m *MockScraper) Source() string {
	if m.SourceFunc != nil {
		return m.SourceFunc()
	}
	return "mock"
}

// Search implements the Scraper interface
func (m *MockScraper) Search(ctx context.Context, query string) ([]listing.Listing, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return nil, nil
}

// NewMockScraper creates a simple mock scraper with predefined results
func NewMockScraper(source string, items []listing.Listing, err error) scraper.Scraper {
	return &MockScraper{
		SourceFunc: func() string {
			return source
		},
		SearchFunc: func(ctx context.Context, query string) ([]listing.Listing, error) {
			return items, err
		},
	}
}

// Listings builds n valid listings for the given source with ascending
// prices starting at base.
func Listings(source string, n int, base float64) []listing.Listing {
	items := make([]listing.Listing, 0, n)
	for i := 0; i < n; i++ {
		item := listing.New("Test Product", base+float64(i), source)
		items = append(items, item)
	}
	return items
}
