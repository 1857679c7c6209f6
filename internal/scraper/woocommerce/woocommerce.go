// Package woocommerce scrapes WooCommerce storefronts through the public
// Store API product search. Prices arrive as integer minor units (cents
// for a two-decimal currency) alongside the scale to divide by.
package woocommerce

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"resty.dev/v3"

	"pricescout/internal/listing"
	"pricescout/internal/priceparse"
	"pricescout/internal/ratelimit"
	"pricescout/internal/scraper"
)

// DefaultPerPage is the Store API page size requested per search.
const DefaultPerPage = 30

// product mirrors the Store API product search response shape, limited
// to the fields the scraper consumes.
type product struct {
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
	Prices    struct {
		Price             string `json:"price"`
		SalePrice         string `json:"sale_price"`
		RegularPrice      string `json:"regular_price"`
		PriceHTML         string `json:"price_html"`
		CurrencyCode      string `json:"currency_code"`
		CurrencyMinorUnit int    `json:"currency_minor_unit"`
	} `json:"prices"`
}

// Scraper is a WooCommerce Store API scraper for one storefront.
type Scraper struct {
	source  string
	baseURL string
	perPage int
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// New creates a WooCommerce scraper for one storefront base URL.
func New(source, baseURL string, client *resty.Client, limiter *ratelimit.Limiter) *Scraper {
	return &Scraper{
		source:  source,
		baseURL: strings.TrimRight(baseURL, "/"),
		perPage: DefaultPerPage,
		client:  client,
		limiter: limiter,
	}
}

// Source implements scraper.Scraper.
func (s *Scraper) Source() string {
	return s.source
}

// SearchURL builds the Store API product search URL for a query.
func (s *Scraper) SearchURL(query string) string {
	return fmt.Sprintf("%s/wp-json/wc/store/v1/products?search=%s&per_page=%d",
		s.baseURL, url.QueryEscape(strings.TrimSpace(query)), s.perPage)
}

// Search runs one Store API product search.
func (s *Scraper) Search(ctx context.Context, query string) ([]listing.Listing, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.source); err != nil {
			return nil, scraper.NewNetworkError(s.source, err)
		}
	}

	var products []product
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(&products).
		Get(s.SearchURL(query))
	if err != nil {
		return nil, scraper.NewNetworkError(s.source, err)
	}
	if !resp.IsSuccess() {
		return nil, scraper.NewHTTPError(s.source, resp.StatusCode())
	}

	return scraper.FilterByQuery(s.normalize(products), query), nil
}

func (s *Scraper) normalize(products []product) []listing.Listing {
	var results []listing.Listing
	seen := make(map[string]struct{})

	for _, p := range products {
		title := strings.TrimSpace(p.Name)
		if title == "" {
			continue
		}

		price, ok := extractPrice(p)
		if !ok {
			continue
		}

		item := listing.New(title, price, s.source)
		item.URL = p.Permalink
		if p.Prices.CurrencyCode != "" {
			item.Currency = p.Prices.CurrencyCode
		}

		key := item.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		results = append(results, item)
	}

	return results
}

// extractPrice resolves the first usable price field, scaling minor
// units by the advertised currency scale. price_html, a user-facing
// string with a currency symbol, is the last resort.
func extractPrice(p product) (float64, bool) {
	for _, raw := range []string{p.Prices.Price, p.Prices.SalePrice, p.Prices.RegularPrice} {
		if price, ok := minorUnitPrice(raw, p.Prices.CurrencyMinorUnit); ok {
			return price, true
		}
	}

	if p.Prices.PriceHTML != "" {
		if price, _, ok := priceparse.Parse(p.Prices.PriceHTML); ok {
			return price, true
		}
	}

	return 0, false
}

func minorUnitPrice(raw string, minorUnit int) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	scale := math.Pow10(max(minorUnit, 0))

	if units, err := strconv.ParseInt(raw, 10, 64); err == nil {
		price := round2(float64(units) / scale)
		return price, price > 0
	}

	if price, _, ok := priceparse.Parse(raw); ok {
		return price, true
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
