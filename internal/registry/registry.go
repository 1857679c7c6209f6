// Package registry holds the built-in roster of storefront integrations.
// Each entry is pure configuration: a site name, the engine that drives
// it, and the selector table or base URL the engine needs. Adding a
// storefront means adding an entry here, not writing new scraping code.
package registry

import (
	"resty.dev/v3"

	"pricescout/internal/ratelimit"
	"pricescout/internal/scraper"
	"pricescout/internal/scraper/generic"
	"pricescout/internal/scraper/shopify"
	"pricescout/internal/scraper/woocommerce"
)

// Engine selects which scrape engine drives a site.
type Engine string

const (
	EngineGeneric     Engine = "generic"
	EngineShopify     Engine = "shopify"
	EngineWooCommerce Engine = "woocommerce"
)

// Site is one storefront integration definition.
type Site struct {
	Name    string
	Engine  Engine
	BaseURL string

	// HTML carries the selector table for EngineGeneric sites.
	HTML generic.Config
}

// Sites returns the tier-1 storefront roster.
func Sites() []Site {
	return []Site{
		{
			Name:    "ebay",
			Engine:  EngineGeneric,
			BaseURL: "https://www.ebay.com",
			HTML: generic.Config{
				SearchURLTemplates: []string{
					"https://www.ebay.com/sch/i.html?_nkw={query}&_ipg=60",
					"https://www.ebay.com/sch/i.html?_nkw={query}&_sop=12&_ipg=60",
				},
				ItemSelector:   ".srp-results .s-item",
				TitleSelectors: []string{"h3.s-item__title", ".s-item__title"},
				PriceSelectors: []string{".s-item__price", ".s-item__detail .s-item__price"},
				LinkSelectors:  []string{".s-item__link"},
				BlockedTitleKeywords: []string{
					"shop on ebay",
					"shop with confidence",
					"new listing",
				},
			},
		},
		{
			Name:    "tcgplayer",
			Engine:  EngineGeneric,
			BaseURL: "https://www.tcgplayer.com",
			HTML: generic.Config{
				SearchURLTemplates: []string{
					"https://www.tcgplayer.com/search/all/product?q={query}&view=grid",
					"https://www.tcgplayer.com/search/pokemon/product?q={query}&view=grid",
				},
				ItemSelector: ".search-result, .product-card, .search-layout__content .product",
				TitleSelectors: []string{
					".search-result__title",
					".product-card__title",
					".product-card__product-name",
					"a[data-testid='productNameLink']",
					"a[href*='/product/']",
				},
				PriceSelectors: []string{
					".inventory__price-with-shipping",
					".search-result__market-price--value",
					".product-card__market-price--value",
					".product-card__price",
					"[data-testid='listingPrice']",
				},
				LinkSelectors:  []string{"a[href*='/product/']"},
				JSONLDFallback: true,
			},
		},
		{
			Name:    "cardmarket",
			Engine:  EngineGeneric,
			BaseURL: "https://www.cardmarket.com",
			HTML: generic.Config{
				SearchURLTemplates: []string{
					"https://www.cardmarket.com/en/Pokemon/Products/Search?searchString={query}",
					"https://www.cardmarket.com/en/Pokemon/Products/Search?searchString={query}&mode=list",
				},
				ItemSelector: ".table-body .row, .product-row, .article-row",
				TitleSelectors: []string{
					"a[href*='/Products/']",
					".product-row-name",
					".col-product a",
					".article-name a",
				},
				PriceSelectors: []string{
					".price-container",
					".col-price",
					".price",
					".article-price",
				},
				LinkSelectors: []string{"a[href*='/Products/']"},
			},
		},
		{
			Name:    "trollandtoad",
			Engine:  EngineGeneric,
			BaseURL: "https://www.trollandtoad.com",
			HTML: generic.Config{
				SearchURLTemplates: []string{
					"https://www.trollandtoad.com/search?search-words={query}",
				},
				ItemSelector: ".search-result, .product-card, .product-result",
				TitleSelectors: []string{
					"a.search-result-title",
					".product-card__title",
					"a[href*='/p']",
				},
				PriceSelectors: []string{
					".search-result-price",
					".product-card__price",
					".price",
				},
				LinkSelectors: []string{
					"a.search-result-title",
					"a[href*='/p']",
				},
			},
		},
		{
			Name:    "coolstuffinc",
			Engine:  EngineGeneric,
			BaseURL: "https://www.coolstuffinc.com",
			HTML: generic.Config{
				SearchURLTemplates: []string{
					"https://www.coolstuffinc.com/main_search.php?pa=searchOnName&page=1&q={query}",
					"https://www.coolstuffinc.com/main_search.php?q={query}",
				},
				ItemSelector: ".prod_box, .search_result, .product-list-item, .product",
				TitleSelectors: []string{
					".prod_name a",
					".product-list-item__name",
					".product_name a",
					"a[href*='/p/']",
				},
				PriceSelectors: []string{
					".regular_price",
					".product-list-item__price",
					".price_container",
					".price",
				},
				LinkSelectors: []string{
					".prod_name a",
					"a[href*='/p/']",
				},
			},
		},
		{
			Name:    "pokedex",
			Engine:  EngineShopify,
			BaseURL: "https://pokedex.in",
		},
		{
			Name:    "beyondgaming",
			Engine:  EngineShopify,
			BaseURL: "https://beyondgaming.in",
		},
		{
			Name:    "toysonfire",
			Engine:  EngineShopify,
			BaseURL: "https://toysonfire.in",
		},
		{
			Name:    "pokevolt",
			Engine:  EngineWooCommerce,
			BaseURL: "https://www.pokevolt.shop",
		},
	}
}

// Build materializes the roster into scrapers sharing one HTTP client
// and rate limiter. enabled filters the roster by site name; an empty
// filter keeps every site.
func Build(sites []Site, client *resty.Client, limiter *ratelimit.Limiter, enabled []string) []scraper.Scraper {
	allow := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		allow[name] = struct{}{}
	}

	var scrapers []scraper.Scraper
	for _, site := range sites {
		if len(allow) > 0 {
			if _, ok := allow[site.Name]; !ok {
				continue
			}
		}

		switch site.Engine {
		case EngineShopify:
			scrapers = append(scrapers, shopify.New(site.Name, site.BaseURL, client, limiter))
		case EngineWooCommerce:
			scrapers = append(scrapers, woocommerce.New(site.Name, site.BaseURL, client, limiter))
		default:
			cfg := site.HTML
			cfg.Source = site.Name
			cfg.BaseURL = site.BaseURL
			scrapers = append(scrapers, generic.New(cfg, client, limiter))
		}
	}

	return scrapers
}
