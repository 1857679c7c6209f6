package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"pricescout/internal/config"
	"pricescout/internal/currency"
	"pricescout/internal/listing"
	"pricescout/internal/marketstats"
	"pricescout/internal/orchestrator"
	"pricescout/internal/ratelimit"
	"pricescout/internal/registry"
	"pricescout/internal/scraper"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initLogger(cfg.LogLevel)

	if len(os.Args) < 2 || strings.TrimSpace(strings.Join(os.Args[1:], " ")) == "" {
		fmt.Fprintf(os.Stderr, "usage: %s <product search query>\n", os.Args[0])
		os.Exit(2)
	}
	query := strings.TrimSpace(strings.Join(os.Args[1:], " "))

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Materialize the storefront roster
	client := scraper.NewHTTPClient(cfg.RequestTimeout())
	limiter := ratelimit.New(cfg.RequestsPerSecond)
	scrapers := registry.Build(registry.Sites(), client, limiter, cfg.EnabledSources)

	fmt.Printf("Searching %d storefronts for %q...\n", len(scrapers), query)
	fmt.Println("================================================")

	result, err := orchestrator.Run(ctx, query, scrapers, orchestrator.Options{
		MaxResultsPerSite: cfg.MaxResultsPerSite,
		MaxWorkers:        cfg.MaxWorkers,
		SourceTimeout:     cfg.SourceTimeout(),
	})
	if err != nil {
		log.Fatalf("Orchestrator failed: %v", err)
	}

	prices := collectPrices(ctx, cfg, result.Items)
	stats := marketstats.ComputeDefault(prices)

	printReport(result, stats)
}

func initLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// collectPrices extracts the price sample, converting into the base
// currency when conversion is enabled. Listings whose currency has no
// known rate are skipped rather than mixed in unconverted.
func collectPrices(ctx context.Context, cfg *config.Config, items []listing.Listing) []float64 {
	prices := make([]float64, 0, len(items))

	if !cfg.ConvertPrices {
		for _, item := range items {
			prices = append(prices, item.Price)
		}
		return prices
	}

	converter := currency.New(cfg.BaseCurrency, cfg.ExchangeBaseURL, 0)
	for _, item := range items {
		code := item.Currency
		if code == "" || code == listing.CurrencyUnknown {
			code = cfg.BaseCurrency
		}

		converted, ok, err := converter.Convert(ctx, item.Price, code)
		if err != nil {
			slog.Warn("currency conversion unavailable, using native prices", "error", err)
			return collectNative(items)
		}
		if !ok {
			slog.Debug("skipping listing with unknown currency",
				"source", item.Source,
				"currency", code)
			continue
		}
		prices = append(prices, converted)
	}

	return prices
}

func collectNative(items []listing.Listing) []float64 {
	prices := make([]float64, 0, len(items))
	for _, item := range items {
		prices = append(prices, item.Price)
	}
	return prices
}

func printReport(result *orchestrator.Result, stats marketstats.Stats) {
	fmt.Println("================================================")
	fmt.Printf("Query: %s\n", result.Query)
	fmt.Printf("Listings collected: %d\n", len(result.Items))

	sourceCounts := make(map[string]int)
	for _, item := range result.Items {
		sourceCounts[item.Source]++
	}
	if len(sourceCounts) > 0 {
		fmt.Println("Source breakdown:")
		for _, source := range sortedKeys(sourceCounts) {
			fmt.Printf("  - %s: %d\n", source, sourceCounts[source])
		}
	}

	if len(result.Durations) > 0 {
		fmt.Println("Site timings (ms):")
		sources := make([]string, 0, len(result.Durations))
		for source := range result.Durations {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			fmt.Printf("  - %s: %d\n", source, result.Durations[source].Milliseconds())
		}
	}

	fmt.Println("Market stats:")
	fmt.Printf("  - raw_count: %d\n", stats.RawCount)
	fmt.Printf("  - count: %d\n", stats.Count)
	if stats.Count > 0 {
		fmt.Printf("  - high: %.2f\n", stats.High)
		fmt.Printf("  - low: %.2f\n", stats.Low)
		fmt.Printf("  - average: %.2f\n", stats.Average)
		fmt.Printf("  - median: %.2f\n", stats.Median)
	} else {
		fmt.Println("  - high: n/a")
		fmt.Println("  - low: n/a")
		fmt.Println("  - average: n/a")
		fmt.Println("  - median: n/a")
	}

	if len(result.Errors) > 0 {
		fmt.Println("Errors:")
		for _, source := range sortedErrorKeys(result.Errors) {
			fmt.Printf("  - %s: %s\n", source, result.Errors[source])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedErrorKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
