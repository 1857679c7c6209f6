package scraper

import (
	"regexp"
	"strings"

	"pricescout/internal/listing"
)

var (
	termSplitter   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	quickViewRe    = regexp.MustCompile(`(?i)\bquick view\b`)
	priceLabelRe   = regexp.MustCompile(`(?i)\b(price|regular price|sale price)\b.*$`)
	availabilityRe = regexp.MustCompile(`(?i)\b(out of stock|sold out)\b`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// stopwords are generic tokens that carry no relevance signal for
// product-listing queries.
var stopwords = map[string]struct{}{
	"the":  {},
	"and":  {},
	"for":  {},
	"with": {},
	"set":  {},
	"pack": {},
}

// SignificantTerms extracts the relevance-bearing tokens of a query:
// lowercased tokens of length >= 3 that are not generic stopwords.
func SignificantTerms(query string) []string {
	var terms []string
	for _, token := range termSplitter.Split(query, -1) {
		if len(token) < 3 {
			continue
		}
		lowered := strings.ToLower(token)
		if _, generic := stopwords[lowered]; generic {
			continue
		}
		terms = append(terms, lowered)
	}
	return terms
}

// FilterByQuery keeps listings whose title contains at least one
// significant query term. A query with no significant terms filters
// nothing.
func FilterByQuery(items []listing.Listing, query string) []listing.Listing {
	terms := SignificantTerms(query)
	if len(terms) == 0 {
		return items
	}

	filtered := make([]listing.Listing, 0, len(items))
	for _, item := range items {
		title := strings.ToLower(item.ProductName)
		for _, term := range terms {
			if strings.Contains(title, term) {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}

// CleanTitle strips storefront chrome ("Quick view", price labels,
// availability badges) out of a scraped title. Returns "" when the
// leftover text is too short to be a product name.
func CleanTitle(text string) string {
	title := quickViewRe.ReplaceAllString(text, " ")
	title = priceLabelRe.ReplaceAllString(title, " ")
	title = availabilityRe.ReplaceAllString(title, " ")
	title = whitespaceRe.ReplaceAllString(title, " ")
	title = strings.Trim(title, " -|")

	if len(title) < 4 {
		return ""
	}
	return title
}
