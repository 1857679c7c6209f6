package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pricescout/internal/listing"
	"pricescout/internal/scraper"
	"pricescout/internal/testutil"
)

func TestRun_MergesAllSources(t *testing.T) {
	scrapers := []scraper.Scraper{
		testutil.NewMockScraper("alpha", testutil.Listings("alpha", 2, 10), nil),
		testutil.NewMockScraper("beta", testutil.Listings("beta", 3, 20), nil),
	}

	result, err := Run(context.Background(), "charizard", scrapers, DefaultOptions())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(result.Items) != 5 {
		t.Errorf("len(Items) = %d, want 5", len(result.Items))
	}
	if len(result.Errors) != 0 {
		t.Errorf("len(Errors) = %d, want 0", len(result.Errors))
	}
	if len(result.Durations) != 2 {
		t.Errorf("len(Durations) = %d, want 2", len(result.Durations))
	}
}

func TestRun_DurationsCoverEveryDispatchedScraper(t *testing.T) {
	scrapers := []scraper.Scraper{
		testutil.NewMockScraper("ok", testutil.Listings("ok", 1, 10), nil),
		testutil.NewMockScraper("failing", nil, errors.New("boom")),
		testutil.NewMockScraper("empty", nil, nil),
	}

	result, err := Run(context.Background(), "query", scrapers, DefaultOptions())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	for _, source := range []string{"ok", "failing", "empty"} {
		if _, present := result.Durations[source]; !present {
			t.Errorf("Durations missing entry for %q", source)
		}
	}
	if len(result.Durations) != 3 {
		t.Errorf("len(Durations) = %d, want 3", len(result.Durations))
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	scrapers := []scraper.Scraper{
		testutil.NewMockScraper("s1", testutil.Listings("s1", 2, 10), nil),
		testutil.NewMockScraper("s2", testutil.Listings("s2", 2, 20), nil),
		testutil.NewMockScraper("s3", nil, errors.New("connection refused")),
		testutil.NewMockScraper("s4", testutil.Listings("s4", 2, 30), nil),
		testutil.NewMockScraper("s5", testutil.Listings("s5", 2, 40), nil),
	}

	result, err := Run(context.Background(), "query", scrapers, DefaultOptions())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(result.Items) != 8 {
		t.Errorf("len(Items) = %d, want 8 (four healthy scrapers)", len(result.Items))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(result.Errors))
	}
	if _, present := result.Errors["s3"]; !present {
		t.Errorf("Errors missing entry for failing scraper s3: %v", result.Errors)
	}

	// A failed scraper contributes no items.
	for _, item := range result.Items {
		if item.Source == "s3" {
			t.Errorf("failed scraper s3 contributed item %+v", item)
		}
	}
}

func TestRun_ErrorAndItemsAreExclusive(t *testing.T) {
	scrapers := []scraper.Scraper{
		testutil.NewMockScraper("ok", testutil.Listings("ok", 3, 10), nil),
		testutil.NewMockScraper("failing", nil, errors.New("boom")),
		testutil.NewMockScraper("empty", nil, nil),
	}

	result, err := Run(context.Background(), "query", scrapers, DefaultOptions())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	contributed := make(map[string]bool)
	for _, item := range result.Items {
		contributed[item.Source] = true
	}

	for source := range result.Errors {
		if contributed[source] {
			t.Errorf("source %q has both items and an error entry", source)
		}
	}
	if _, present := result.Errors["empty"]; present {
		t.Errorf("zero-item success recorded an error: %v", result.Errors)
	}
}

func TestRun_MaxResultsPerSiteTruncates(t *testing.T) {
	scrapers := []scraper.Scraper{
		testutil.NewMockScraper("verbose", testutil.Listings("verbose", 50, 10), nil),
		testutil.NewMockScraper("modest", testutil.Listings("modest", 2, 20), nil),
	}

	opts := DefaultOptions()
	opts.MaxResultsPerSite = 5

	result, err := Run(context.Background(), "query", scrapers, opts)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	counts := make(map[string]int)
	for _, item := range result.Items {
		counts[item.Source]++
	}

	if counts["verbose"] != 5 {
		t.Errorf("verbose contributed %d items, want 5", counts["verbose"])
	}
	if counts["modest"] != 2 {
		t.Errorf("modest contributed %d items, want 2 (per-site cap, not global)", counts["modest"])
	}
}

func TestRun_TruncationPreservesScraperOrder(t *testing.T) {
	items := testutil.Listings("src", 10, 100)
	scrapers := []scraper.Scraper{testutil.NewMockScraper("src", items, nil)}

	opts := DefaultOptions()
	opts.MaxResultsPerSite = 3

	result, err := Run(context.Background(), "query", scrapers, opts)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(result.Items))
	}
	for i, item := range result.Items {
		if item.Price != items[i].Price {
			t.Errorf("Items[%d].Price = %v, want %v (ordering not preserved)", i, item.Price, items[i].Price)
		}
	}
}

func TestRun_ZeroMaxResultsIsUnbounded(t *testing.T) {
	scrapers := []scraper.Scraper{
		testutil.NewMockScraper("verbose", testutil.Listings("verbose", 50, 10), nil),
	}

	opts := DefaultOptions()
	opts.MaxResultsPerSite = 0

	result, err := Run(context.Background(), "query", scrapers, opts)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(result.Items) != 50 {
		t.Errorf("len(Items) = %d, want 50 (unbounded)", len(result.Items))
	}
}

func TestRun_EmptyQuery(t *testing.T) {
	called := atomic.Bool{}
	scrapers := []scraper.Scraper{
		&testutil.MockScraper{
			SearchFunc: func(ctx context.Context, query string) ([]listing.Listing, error) {
				called.Store(true)
				return nil, nil
			},
		},
	}

	for _, query := range []string{"", "   ", "\t\n"} {
		result, err := Run(context.Background(), query, scrapers, DefaultOptions())
		if err != nil {
			t.Fatalf("Run(%q) returned unexpected error: %v", query, err)
		}
		if len(result.Items) != 0 || len(result.Errors) != 0 || len(result.Durations) != 0 {
			t.Errorf("Run(%q) = %+v, want empty result", query, result)
		}
	}

	if called.Load() {
		t.Error("scraper dispatched for blank query")
	}
}

func TestRun_NegativeOptionsRejected(t *testing.T) {
	scrapers := []scraper.Scraper{testutil.NewMockScraper("src", nil, nil)}

	opts := DefaultOptions()
	opts.MaxWorkers = -1
	if _, err := Run(context.Background(), "query", scrapers, opts); err == nil {
		t.Error("Run() with negative MaxWorkers returned nil error")
	}

	opts = DefaultOptions()
	opts.MaxResultsPerSite = -1
	if _, err := Run(context.Background(), "query", scrapers, opts); err == nil {
		t.Error("Run() with negative MaxResultsPerSite returned nil error")
	}
}

func TestRun_BoundsParallelism(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0

	slowScraper := func(source string) scraper.Scraper {
		return &testutil.MockScraper{
			SourceFunc: func() string { return source },
			SearchFunc: func(ctx context.Context, query string) ([]listing.Listing, error) {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				time.Sleep(30 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil, nil
			},
		}
	}

	scrapers := []scraper.Scraper{
		slowScraper("a"), slowScraper("b"), slowScraper("c"),
		slowScraper("d"), slowScraper("e"), slowScraper("f"),
	}

	opts := DefaultOptions()
	opts.MaxWorkers = 2

	if _, err := Run(context.Background(), "query", scrapers, opts); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRun_TimeoutRecordedDistinctly(t *testing.T) {
	stuck := &testutil.MockScraper{
		SourceFunc: func() string { return "stuck" },
		SearchFunc: func(ctx context.Context, query string) ([]listing.Listing, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	fast := testutil.NewMockScraper("fast", testutil.Listings("fast", 1, 10), nil)

	opts := DefaultOptions()
	opts.SourceTimeout = 50 * time.Millisecond

	result, err := Run(context.Background(), "query", []scraper.Scraper{stuck, fast}, opts)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	msg, present := result.Errors["stuck"]
	if !present {
		t.Fatalf("Errors missing entry for timed-out scraper: %v", result.Errors)
	}
	if !strings.Contains(msg, TimeoutMessage) {
		t.Errorf("timeout error = %q, want it to contain %q", msg, TimeoutMessage)
	}

	if _, present := result.Durations["stuck"]; !present {
		t.Error("Durations missing entry for timed-out scraper")
	}
	if len(result.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1 (fast scraper unaffected)", len(result.Items))
	}
}

func TestRun_StuckScraperDoesNotBlockMerge(t *testing.T) {
	// A scraper that ignores cancellation entirely must still not stall
	// the run past its budget.
	ignoresCtx := &testutil.MockScraper{
		SourceFunc: func() string { return "ignores_ctx" },
		SearchFunc: func(ctx context.Context, query string) ([]listing.Listing, error) {
			time.Sleep(2 * time.Second)
			return nil, nil
		},
	}

	opts := DefaultOptions()
	opts.SourceTimeout = 50 * time.Millisecond

	start := time.Now()
	result, err := Run(context.Background(), "query", []scraper.Scraper{ignoresCtx}, opts)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run() took %v, want well under the stuck scraper's sleep", elapsed)
	}

	if _, present := result.Errors["ignores_ctx"]; !present {
		t.Errorf("Errors missing entry for stuck scraper: %v", result.Errors)
	}
}

func TestRun_NoScrapers(t *testing.T) {
	result, err := Run(context.Background(), "query", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if len(result.Items) != 0 || len(result.Durations) != 0 {
		t.Errorf("Run() with no scrapers = %+v, want empty result", result)
	}
}
