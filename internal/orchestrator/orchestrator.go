// Package orchestrator fans one query out to every configured scraper,
// bounds parallelism, isolates per-scraper failures and timeouts, and
// merges whatever comes back into one partial-tolerant result.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pricescout/internal/listing"
	"pricescout/internal/scraper"
)

// TimeoutMessage is the fixed, recognizable prefix recorded for a
// scraper that exceeds its time budget, so operators can tell timeouts
// apart from other failures.
const TimeoutMessage = "search timed out"

// Options controls one orchestration run.
type Options struct {
	// MaxResultsPerSite caps how many listings each scraper contributes,
	// preserving the scraper's own ordering. 0 means unbounded. The cap
	// is applied per scraper, never globally, so a verbose source cannot
	// starve the others' budget.
	MaxResultsPerSite int

	// MaxWorkers bounds how many scrapers run concurrently. 0 means
	// DefaultMaxWorkers; negative is a caller error.
	MaxWorkers int

	// SourceTimeout is each scraper's wait budget. 0 disables the
	// per-scraper timeout.
	SourceTimeout time.Duration
}

// Defaults applied when an Options field is left zero.
const (
	DefaultMaxResultsPerSite = 30
	DefaultMaxWorkers        = 5
	DefaultSourceTimeout     = 20 * time.Second
)

// DefaultOptions returns the standard run configuration.
func DefaultOptions() Options {
	return Options{
		MaxResultsPerSite: DefaultMaxResultsPerSite,
		MaxWorkers:        DefaultMaxWorkers,
		SourceTimeout:     DefaultSourceTimeout,
	}
}

// Result aggregates one orchestration run. Items order reflects scraper
// completion order, which races by design; Errors and Durations are
// keyed by source id and therefore deterministic regardless of
// completion order.
type Result struct {
	Query string

	// Items holds every contributed listing in completion order.
	Items []listing.Listing

	// Errors maps source id to failure message, one entry per scraper
	// that failed or timed out.
	Errors map[string]string

	// Durations maps source id to elapsed wall time, exactly one entry
	// per dispatched scraper regardless of outcome.
	Durations map[string]time.Duration
}

// outcome carries one scraper's result across the timeout select.
type outcome struct {
	items []listing.Listing
	err   error
}

// Run dispatches every scraper against the query with parallelism
// min(MaxWorkers, len(scrapers)) and merges results as they complete.
// A scraper failure is recorded, never propagated: the run succeeds
// with a partial result. The only caller-visible error is a malformed
// call (negative option values). An empty or whitespace-only query
// yields an empty result with no errors.
func Run(ctx context.Context, query string, scrapers []scraper.Scraper, opts Options) (*Result, error) {
	if opts.MaxWorkers < 0 {
		return nil, fmt.Errorf("orchestrator: max workers must be at least 1, got %d", opts.MaxWorkers)
	}
	if opts.MaxResultsPerSite < 0 {
		return nil, fmt.Errorf("orchestrator: max results per site must be >= 0, got %d", opts.MaxResultsPerSite)
	}
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}

	result := &Result{
		Query:     query,
		Errors:    make(map[string]string),
		Durations: make(map[string]time.Duration),
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" || len(scrapers) == 0 {
		return result, nil
	}

	workers := opts.MaxWorkers
	if len(scrapers) < workers {
		workers = len(scrapers)
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, s := range scrapers {
		s := s
		source := s.Source()

		g.Go(func() error {
			items, elapsed, err := invoke(gCtx, s, trimmed, opts.SourceTimeout)

			mu.Lock()
			defer mu.Unlock()

			result.Durations[source] = elapsed
			if err != nil {
				result.Errors[source] = err.Error()
				return nil
			}

			if opts.MaxResultsPerSite > 0 && len(items) > opts.MaxResultsPerSite {
				items = items[:opts.MaxResultsPerSite]
			}
			result.Items = append(result.Items, items...)

			// A scraper failure never aborts the group.
			return nil
		})
	}

	_ = g.Wait()

	return result, nil
}

// invoke runs one scraper under its time budget. A scraper that ignores
// cancellation still cannot block the merge: on timeout the invocation
// is abandoned and the elapsed budget recorded.
func invoke(ctx context.Context, s scraper.Scraper, query string, timeout time.Duration) ([]listing.Listing, time.Duration, error) {
	sctx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		items, err := s.Search(sctx, query)
		done <- outcome{items: items, err: err}
	}()

	select {
	case o := <-done:
		elapsed := time.Since(start)
		if o.err != nil && sctx.Err() == context.DeadlineExceeded {
			return nil, elapsed, fmt.Errorf("%s after %s", TimeoutMessage, timeout)
		}
		return o.items, elapsed, o.err
	case <-sctx.Done():
		elapsed := time.Since(start)
		if sctx.Err() == context.DeadlineExceeded {
			return nil, elapsed, fmt.Errorf("%s after %s", TimeoutMessage, timeout)
		}
		return nil, elapsed, sctx.Err()
	}
}
