// Package currency converts scraped prices into one base currency using
// live exchange rates. The rate table is an explicit cached value with a
// fetch timestamp; refreshes go through a single-flight guard so
// concurrent callers never stampede the upstream rate API.
package currency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"resty.dev/v3"
)

const (
	// DefaultBaseURL is the public exchange rate endpoint.
	DefaultBaseURL = "https://api.exchangerate.host"

	// DefaultTTL is how long a fetched rate table stays fresh.
	DefaultTTL = time.Hour
)

// rateTable is the cache value: the rates and when they were fetched.
type rateTable struct {
	rates     map[string]float64
	fetchedAt time.Time
}

// ratesResponse mirrors the upstream latest-rates payload.
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Converter owns one cached rate table for one base currency.
type Converter struct {
	base   string
	ttl    time.Duration
	client *resty.Client
	group  singleflight.Group

	mu    sync.RWMutex
	table rateTable
}

// New creates a Converter for the given base currency. baseURL may be
// empty to use the public endpoint.
func New(base, baseURL string, ttl time.Duration) *Converter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second)

	return &Converter{
		base:   base,
		ttl:    ttl,
		client: client,
	}
}

// Base returns the converter's base currency code.
func (c *Converter) Base() string {
	return c.base
}

// Convert translates a price in the given currency into the base
// currency. A rate lookup for an unknown currency code returns
// ok=false, never an error; errors are reserved for upstream fetch
// failures.
func (c *Converter) Convert(ctx context.Context, price float64, code string) (float64, bool, error) {
	if code == c.base {
		return price, true, nil
	}

	rate, ok, err := c.Rate(ctx, code)
	if err != nil || !ok {
		return 0, ok, err
	}
	if rate == 0 {
		return 0, false, nil
	}

	// Rates are quoted against the base: rates[code] units of code per
	// one unit of base.
	return price / rate, true, nil
}

// Rate returns the cached rate for a currency code, refreshing the
// table first when it is stale. Unknown codes return ok=false.
func (c *Converter) Rate(ctx context.Context, code string) (float64, bool, error) {
	table := c.snapshot()
	if table.rates == nil || time.Since(table.fetchedAt) > c.ttl {
		refreshed, err := c.refresh(ctx)
		if err != nil {
			return 0, false, err
		}
		table = refreshed
	}

	rate, ok := table.rates[code]
	return rate, ok, nil
}

// refresh fetches a new rate table, deduplicating concurrent refreshes
// through the single-flight group.
func (c *Converter) refresh(ctx context.Context) (rateTable, error) {
	v, err, _ := c.group.Do("rates", func() (any, error) {
		// A concurrent caller may have refreshed while we waited.
		if table := c.snapshot(); table.rates != nil && time.Since(table.fetchedAt) <= c.ttl {
			return table, nil
		}

		var payload ratesResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParam("base", c.base).
			SetResult(&payload).
			Get("/latest")
		if err != nil {
			return rateTable{}, fmt.Errorf("fetch exchange rates: %w", err)
		}
		if !resp.IsSuccess() {
			return rateTable{}, fmt.Errorf("exchange rate API returned status %d", resp.StatusCode())
		}
		if len(payload.Rates) == 0 {
			return rateTable{}, fmt.Errorf("exchange rate API returned no rates for base %s", c.base)
		}

		table := rateTable{rates: payload.Rates, fetchedAt: time.Now()}
		c.store(table)
		return table, nil
	})
	if err != nil {
		return rateTable{}, err
	}
	return v.(rateTable), nil
}

func (c *Converter) snapshot() rateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

func (c *Converter) store(table rateTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = table
}
