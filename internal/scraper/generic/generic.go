// Package generic implements a selector-driven HTML listing scraper.
// Everything site-specific lives in the Config: URL templates, CSS
// selectors, and blocked-title keywords. The engine itself only knows
// how to fetch, select, normalize, and deduplicate.
package generic

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"pricescout/internal/listing"
	"pricescout/internal/priceparse"
	"pricescout/internal/ratelimit"
	"pricescout/internal/scraper"
)

// DefaultMaxItems caps how many listings one parse pass collects.
const DefaultMaxItems = 60

var spaceRe = regexp.MustCompile(`\s+`)

// Config holds the site-specific selector table driving the engine.
type Config struct {
	// Source is the stable scraper identifier.
	Source string

	// BaseURL resolves relative listing links.
	BaseURL string

	// SearchURLTemplates are candidate search URLs tried in order, each
	// containing a "{query}" placeholder. The first template that yields
	// listings wins.
	SearchURLTemplates []string

	// ItemSelector matches one listing container per result.
	ItemSelector string

	// TitleSelectors, PriceSelectors and LinkSelectors are tried in
	// order inside each container; the first non-empty match is used.
	TitleSelectors []string
	PriceSelectors []string
	LinkSelectors  []string

	// BlockedTitleKeywords drop promotional rows ("Shop on eBay", ...).
	BlockedTitleKeywords []string

	// JSONLDFallback enables parsing embedded JSON-LD product metadata
	// when the selector pass finds nothing. Some storefront variants
	// expose structured data even when the grid markup changes.
	JSONLDFallback bool

	// MaxItems caps the parse result. 0 means DefaultMaxItems.
	MaxItems int
}

// Scraper is a selector-driven HTML scraper for one storefront.
type Scraper struct {
	cfg     Config
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// New creates a generic HTML scraper from a selector config.
func New(cfg Config, client *resty.Client, limiter *ratelimit.Limiter) *Scraper {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	return &Scraper{cfg: cfg, client: client, limiter: limiter}
}

// Source implements scraper.Scraper.
func (s *Scraper) Source() string {
	return s.cfg.Source
}

// Search tries each candidate search URL in order and returns the first
// non-empty parse, filtered for query relevance. A script-only page
// fails with a rendering error; a page that simply has no matches
// returns an empty result.
func (s *Scraper) Search(ctx context.Context, query string) ([]listing.Listing, error) {
	var lastErr error

	for _, template := range s.cfg.SearchURLTemplates {
		body, err := s.fetch(ctx, BuildSearchURL(template, query))
		if err != nil {
			lastErr = err
			continue
		}

		items, err := s.ParseListings(body)
		if err != nil {
			return nil, err
		}

		items = scraper.FilterByQuery(items, query)
		if len(items) > 0 {
			return items, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// ParseListings extracts normalized listings from a search-results page.
func (s *Scraper) ParseListings(body string) ([]listing.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, scraper.NewParseError(s.cfg.Source, "invalid html")
	}

	containers := doc.Find(s.cfg.ItemSelector)
	if containers.Length() == 0 {
		if scraper.RequiresRendering(body) {
			return nil, scraper.NewRenderingError(s.cfg.Source)
		}
		if s.cfg.JSONLDFallback {
			return s.parseJSONLD(doc), nil
		}
		return nil, nil
	}

	var results []listing.Listing
	seen := make(map[string]struct{})

	containers.EachWithBreak(func(_ int, container *goquery.Selection) bool {
		title := scraper.CleanTitle(s.selectText(container, s.cfg.TitleSelectors))
		if title == "" || s.titleBlocked(title) {
			return true
		}

		price, currency, ok := priceparse.Parse(s.selectText(container, s.cfg.PriceSelectors))
		if !ok {
			// Unparseable price means the candidate is unusable, not
			// that it costs zero.
			return true
		}

		item := listing.New(title, price, s.cfg.Source)
		item.Currency = currency
		item.URL = s.resolveURL(s.selectHref(container, s.cfg.LinkSelectors))

		if !item.Valid() {
			return true
		}

		key := item.DedupeKey()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}

		results = append(results, item)
		return len(results) < s.cfg.MaxItems
	})

	return results, nil
}

func (s *Scraper) fetch(ctx context.Context, searchURL string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.cfg.Source); err != nil {
			return "", scraper.NewNetworkError(s.cfg.Source, err)
		}
	}

	resp, err := s.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return "", scraper.NewNetworkError(s.cfg.Source, err)
	}
	if !resp.IsSuccess() {
		return "", scraper.NewHTTPError(s.cfg.Source, resp.StatusCode())
	}

	return resp.String(), nil
}

func (s *Scraper) titleBlocked(title string) bool {
	lowered := strings.ToLower(title)
	for _, blocked := range s.cfg.BlockedTitleKeywords {
		if strings.Contains(lowered, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}

// selectText returns the first non-empty text among the selectors.
func (s *Scraper) selectText(container *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		node := container.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(spaceRe.ReplaceAllString(node.Text(), " "))
		if text != "" {
			return text
		}
	}
	return ""
}

// selectHref returns the first non-empty href among the selectors.
func (s *Scraper) selectHref(container *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		node := container.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if href, ok := node.Attr("href"); ok && href != "" {
			return href
		}
	}
	return ""
}

// resolveURL joins a scraped href against the site base URL.
func (s *Scraper) resolveURL(href string) string {
	if href == "" {
		return ""
	}

	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return href
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return href
	}
	return resolved.String()
}

// BuildSearchURL substitutes the encoded query into a URL template.
func BuildSearchURL(template, query string) string {
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(strings.TrimSpace(query)))
}
