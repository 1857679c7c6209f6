package generic

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"pricescout/internal/listing"
	"pricescout/internal/priceparse"
	"pricescout/internal/scraper"
)

// parseJSONLD extracts listings from script[type='application/ld+json']
// product metadata. Payloads may hold a single object or an array; only
// Product and Offer entries carry usable prices.
func (s *Scraper) parseJSONLD(doc *goquery.Document) []listing.Listing {
	var results []listing.Listing
	seen := make(map[string]struct{})

	doc.Find(`script[type='application/ld+json']`).Each(func(_ int, script *goquery.Selection) {
		payload := strings.TrimSpace(script.Text())
		if payload == "" || !gjson.Valid(payload) {
			return
		}

		parsed := gjson.Parse(payload)
		entries := []gjson.Result{parsed}
		if parsed.IsArray() {
			entries = parsed.Array()
		}

		for _, entry := range entries {
			item, ok := s.listingFromJSONLD(entry)
			if !ok {
				continue
			}

			key := item.DedupeKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			results = append(results, item)
			if len(results) >= s.cfg.MaxItems {
				return
			}
		}
	})

	return results
}

func (s *Scraper) listingFromJSONLD(entry gjson.Result) (listing.Listing, bool) {
	entryType := strings.ToLower(entry.Get("@type").String())
	if entryType != "product" && entryType != "offer" {
		return listing.Listing{}, false
	}

	title := entry.Get("name").String()
	if title == "" {
		title = entry.Get("title").String()
	}
	title = scraper.CleanTitle(spaceRe.ReplaceAllString(title, " "))
	if title == "" {
		return listing.Listing{}, false
	}

	offer := entry.Get("offers")
	if offer.IsArray() {
		offer = offer.Get("0")
	}
	if !offer.Exists() {
		offer = entry
	}

	rawPrice := offer.Get("price").String()
	price, currency, ok := priceparse.Parse(rawPrice)
	if !ok {
		return listing.Listing{}, false
	}
	if code := offer.Get("priceCurrency").String(); code != "" {
		currency = code
	}

	itemURL := offer.Get("url").String()
	if itemURL == "" {
		itemURL = entry.Get("url").String()
	}

	item := listing.New(title, price, s.cfg.Source)
	item.Currency = currency
	item.URL = s.resolveURL(itemURL)
	return item, item.Valid()
}
