// Package ratelimit throttles outbound requests per storefront so one
// orchestration run never hammers a single site, even when several
// candidate URLs are tried in a row.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is a conservative default suitable for
// consumer storefronts.
const DefaultRequestsPerSecond = 2.0

// Limiter manages one token bucket per source id. Sources not seen
// before get a limiter at the configured default rate on first use.
type Limiter struct {
	defaultRate rate.Limit
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
}

// New creates a Limiter with the given default per-source rate.
// requestsPerSecond <= 0 disables limiting entirely.
func New(requestsPerSecond float64) *Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Limiter{
		defaultRate: limit,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// SetRate overrides the rate for one source. requestsPerSecond <= 0
// removes the limit for that source.
func (l *Limiter) SetRate(source string, requestsPerSecond float64) {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[source] = rate.NewLimiter(limit, 1)
}

// Wait blocks until the source's limiter permits a request, or returns
// the context's error if it is canceled first.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	return l.get(source).Wait(ctx)
}

// Allow reports whether a request for the source may proceed now.
func (l *Limiter) Allow(source string) bool {
	return l.get(source).Allow()
}

func (l *Limiter) get(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, 1)
		l.limiters[source] = limiter
	}
	return limiter
}
