// Package shopify scrapes Shopify storefronts through the predictive
// search JSON endpoint, falling back to the HTML search page for themes
// that disable suggest.json. The fallback chain is an explicit ordered
// list of strategies: the first one returning listings wins.
package shopify

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"pricescout/internal/listing"
	"pricescout/internal/priceparse"
	"pricescout/internal/ratelimit"
	"pricescout/internal/scraper"
	"pricescout/internal/scraper/generic"
)

// DefaultMaxItems caps how many products one search returns.
const DefaultMaxItems = 60

// Selector sets shared by stock Shopify themes, used for the HTML
// fallback when predictive search is disabled.
var (
	fallbackItemSelector   = ".card-wrapper, .grid__item, .product-item, .product-card, .grid-product"
	fallbackTitleSelectors = []string{
		"a.full-unstyled-link",
		".card__heading a",
		".product-item__title",
		".grid-product__title",
		".card-information__text",
		"a[href*='/products/']",
	}
	fallbackPriceSelectors = []string{
		".price-item--last",
		".price-item--regular",
		".grid-product__price",
		".price",
		".money",
	}
	fallbackLinkSelectors = []string{
		"a.full-unstyled-link",
		".card__heading a",
		"a[href*='/products/']",
	}
)

// Scraper is a Shopify storefront scraper.
type Scraper struct {
	source   string
	baseURL  string
	maxItems int
	client   *resty.Client
	limiter  *ratelimit.Limiter
	fallback *generic.Scraper
}

// New creates a Shopify scraper for one storefront base URL.
func New(source, baseURL string, client *resty.Client, limiter *ratelimit.Limiter) *Scraper {
	base := strings.TrimRight(baseURL, "/")
	fallback := generic.New(generic.Config{
		Source:  source,
		BaseURL: base,
		SearchURLTemplates: []string{
			base + "/search?q={query}&type=product",
			base + "/search?q={query}",
		},
		ItemSelector:   fallbackItemSelector,
		TitleSelectors: fallbackTitleSelectors,
		PriceSelectors: fallbackPriceSelectors,
		LinkSelectors:  fallbackLinkSelectors,
		MaxItems:       DefaultMaxItems,
	}, client, limiter)

	return &Scraper{
		source:   source,
		baseURL:  base,
		maxItems: DefaultMaxItems,
		client:   client,
		limiter:  limiter,
		fallback: fallback,
	}
}

// Source implements scraper.Scraper.
func (s *Scraper) Source() string {
	return s.source
}

// Search tries the predictive endpoint first and falls back to the HTML
// search page when the endpoint is unavailable or empty.
func (s *Scraper) Search(ctx context.Context, query string) ([]listing.Listing, error) {
	items, err := s.searchPredictive(ctx, query)
	if err == nil && len(items) > 0 {
		return items, nil
	}

	fallbackItems, fallbackErr := s.fallback.Search(ctx, query)
	if fallbackErr == nil {
		return fallbackItems, nil
	}

	if err != nil {
		return nil, err
	}
	return nil, fallbackErr
}

// PredictiveURL builds the suggest.json search URL for a query.
func (s *Scraper) PredictiveURL(query string) string {
	return fmt.Sprintf("%s/search/suggest.json?q=%s&resources[type]=product&resources[limit]=%d",
		s.baseURL, url.QueryEscape(strings.TrimSpace(query)), s.maxItems)
}

func (s *Scraper) searchPredictive(ctx context.Context, query string) ([]listing.Listing, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.source); err != nil {
			return nil, scraper.NewNetworkError(s.source, err)
		}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(s.PredictiveURL(query))
	if err != nil {
		return nil, scraper.NewNetworkError(s.source, err)
	}
	if !resp.IsSuccess() {
		return nil, scraper.NewHTTPError(s.source, resp.StatusCode())
	}

	items := s.ParsePredictive(resp.String())
	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}
	return scraper.FilterByQuery(items, query), nil
}

// ParsePredictive extracts listings from a suggest.json payload.
func (s *Scraper) ParsePredictive(payload string) []listing.Listing {
	products := gjson.Get(payload, "resources.results.products")
	if !products.IsArray() {
		return nil
	}

	var results []listing.Listing
	seen := make(map[string]struct{})

	for _, product := range products.Array() {
		title := strings.TrimSpace(product.Get("title").String())
		if title == "" {
			continue
		}

		price, ok := extractPrice(product)
		if !ok {
			continue
		}

		rawURL := product.Get("url").String()
		if rawURL == "" {
			rawURL = product.Get("path").String()
		}
		if rawURL == "" {
			continue
		}

		item := listing.New(title, price, s.source)
		item.URL = s.resolveURL(rawURL)

		key := item.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		results = append(results, item)
	}

	return results
}

// extractPrice pulls a price from a predictive-search product. Numeric
// fields are tried first, then user-facing text fields through the
// price parser.
func extractPrice(product gjson.Result) (float64, bool) {
	for _, key := range []string{"price", "price_min", "price_max", "compare_at_price"} {
		if price, ok := normalizePrice(product.Get(key)); ok {
			return price, true
		}
	}

	for _, key := range []string{"price_varies", "price_range", "formatted_price"} {
		field := product.Get(key)
		if !field.Exists() {
			continue
		}
		if price, _, ok := priceparse.Parse(field.String()); ok {
			return price, true
		}
	}

	return 0, false
}

// normalizePrice interprets a numeric-looking predictive price field.
// The predictive API often reports integer cents.
func normalizePrice(field gjson.Result) (float64, bool) {
	switch field.Type {
	case gjson.Number:
		return fromShopifyUnits(field.Float())
	case gjson.String:
		text := strings.TrimSpace(field.String())
		if text == "" {
			return 0, false
		}
		if cents, err := strconv.ParseInt(text, 10, 64); err == nil {
			return fromShopifyUnits(float64(cents))
		}
		if price, _, ok := priceparse.Parse(text); ok {
			return price, true
		}
	}
	return 0, false
}

func fromShopifyUnits(value float64) (float64, bool) {
	if value <= 0 {
		return 0, false
	}
	if value > 10000 {
		return round2(value / 100), true
	}
	return round2(value), true
}

func (s *Scraper) resolveURL(raw string) string {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return raw
	}
	resolved, err := base.Parse(raw)
	if err != nil {
		return raw
	}
	return resolved.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
