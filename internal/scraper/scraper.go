package scraper

import (
	"context"

	"pricescout/internal/listing"
)

// Scraper is the capability contract every storefront integration must
// satisfy. The orchestrator treats implementations as opaque: it calls
// Source once to key its maps and Search once per orchestration run.
type Scraper interface {
	// Source returns the stable identifier of this integration. It is
	// used as the key in the orchestrator's error and duration maps.
	Source() string

	// Search runs one query against the storefront and returns zero or
	// more normalized listings. Implementations must deduplicate their
	// own result, must never emit a listing with a missing title or a
	// non-positive price, and signal failure by returning an error.
	// Retry policy is the implementation's own concern: the orchestrator
	// invokes Search at most once per run.
	Search(ctx context.Context, query string) ([]listing.Listing, error)
}
