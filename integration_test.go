package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricescout/internal/marketstats"
	"pricescout/internal/orchestrator"
	"pricescout/internal/ratelimit"
	"pricescout/internal/registry"
	"pricescout/internal/scraper"
	"pricescout/internal/scraper/generic"
)

// End-to-end run over three fake storefronts, one per engine: an HTML
// catalog, a Shopify predictive-search store and a WooCommerce Store
// API store. Exercises the full pipeline from registry roster through
// the orchestrator down to market stats.
func TestEndToEndSearch(t *testing.T) {
	htmlServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="item"><a class="title" href="/p/1">Charizard Holo 4/102</a><span class="price">$120.00</span></div>
<div class="item"><a class="title" href="/p/2">Charizard Holo PSA 9</a><span class="price">$135.50</span></div>
<div class="item"><a class="title" href="/p/3">Pikachu Promo</a><span class="price">$8.00</span></div>
</body></html>`)
	}))
	defer htmlServer.Close()

	shopifyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/suggest.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"resources": {"results": {"products": [
			{"title": "Charizard Holo NM", "price": "12800", "url": "/products/charizard-nm"},
			{"title": "Charizard Holo LP", "price": "11500", "url": "/products/charizard-lp"}
		]}}}`)
	}))
	defer shopifyServer.Close()

	wooServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/store/v1/products" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{
			"name": "Charizard Holo Unlimited",
			"permalink": "https://woo.example.com/product/charizard",
			"prices": {"price": "12500", "currency_code": "USD", "currency_minor_unit": 2}
		}]`)
	}))
	defer wooServer.Close()

	sites := []registry.Site{
		{
			Name:    "htmlstore",
			Engine:  registry.EngineGeneric,
			BaseURL: htmlServer.URL,
			HTML: generic.Config{
				SearchURLTemplates: []string{htmlServer.URL + "/search?q={query}"},
				ItemSelector:       ".item",
				TitleSelectors:     []string{"a.title"},
				PriceSelectors:     []string{".price"},
				LinkSelectors:      []string{"a.title"},
			},
		},
		{Name: "shopstore", Engine: registry.EngineShopify, BaseURL: shopifyServer.URL},
		{Name: "woostore", Engine: registry.EngineWooCommerce, BaseURL: wooServer.URL},
	}

	client := scraper.NewHTTPClient(10 * time.Second)
	limiter := ratelimit.New(0)
	scrapers := registry.Build(sites, client, limiter, nil)
	if len(scrapers) != 3 {
		t.Fatalf("Build() returned %d scrapers, want 3", len(scrapers))
	}

	result, err := orchestrator.Run(context.Background(), "charizard holo", scrapers, orchestrator.DefaultOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Errors) != 0 {
		t.Fatalf("Run() produced errors: %v", result.Errors)
	}
	// "Pikachu Promo" fails the relevance filter on the HTML store.
	if len(result.Items) != 5 {
		t.Fatalf("len(result.Items) = %d, want 5: %+v", len(result.Items), result.Items)
	}
	for _, source := range []string{"htmlstore", "shopstore", "woostore"} {
		if _, ok := result.Durations[source]; !ok {
			t.Errorf("Durations missing entry for %q", source)
		}
	}

	perSource := make(map[string]int)
	prices := make([]float64, 0, len(result.Items))
	for _, item := range result.Items {
		perSource[item.Source]++
		prices = append(prices, item.Price)
	}
	if perSource["htmlstore"] != 2 || perSource["shopstore"] != 2 || perSource["woostore"] != 1 {
		t.Errorf("per-source counts = %v, want htmlstore:2 shopstore:2 woostore:1", perSource)
	}

	stats := marketstats.ComputeDefault(prices)
	if stats.RawCount != 5 || stats.Count != 5 {
		t.Fatalf("stats counts = (%d, %d), want (5, 5)", stats.RawCount, stats.Count)
	}
	if stats.Low != 115 || stats.High != 135.5 {
		t.Errorf("stats range = [%v, %v], want [115, 135.5]", stats.Low, stats.High)
	}
	if stats.Median != 125 {
		t.Errorf("stats.Median = %v, want 125", stats.Median)
	}
}

func TestEndToEndSearch_FailingStoreIsolated(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="item"><a class="title" href="/p/1">Charizard Holo</a><span class="price">$99.99</span></div>
</body></html>`)
	}))
	defer okServer.Close()

	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer downServer.Close()

	htmlConfig := func(base string) generic.Config {
		return generic.Config{
			SearchURLTemplates: []string{base + "/search?q={query}"},
			ItemSelector:       ".item",
			TitleSelectors:     []string{"a.title"},
			PriceSelectors:     []string{".price"},
			LinkSelectors:      []string{"a.title"},
		}
	}
	sites := []registry.Site{
		{Name: "good", Engine: registry.EngineGeneric, BaseURL: okServer.URL, HTML: htmlConfig(okServer.URL)},
		{Name: "down", Engine: registry.EngineGeneric, BaseURL: downServer.URL, HTML: htmlConfig(downServer.URL)},
	}

	client := scraper.NewHTTPClient(10 * time.Second)
	scrapers := registry.Build(sites, client, ratelimit.New(0), nil)

	result, err := orchestrator.Run(context.Background(), "charizard", scrapers, orchestrator.DefaultOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Items) != 1 || result.Items[0].Source != "good" {
		t.Fatalf("result.Items = %+v, want one listing from the healthy store", result.Items)
	}
	if _, ok := result.Errors["down"]; !ok {
		t.Errorf("Errors = %v, want an entry for the failing store", result.Errors)
	}
	if _, ok := result.Errors["good"]; ok {
		t.Error("Errors contains an entry for the healthy store")
	}
	if len(result.Durations) != 2 {
		t.Errorf("len(Durations) = %d, want 2", len(result.Durations))
	}
}
