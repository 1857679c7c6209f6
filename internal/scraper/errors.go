package scraper

import (
	"fmt"
)

// ErrorKind categorizes a scrape failure so operators can tell a parsing
// bug apart from a source that needs a different technique.
type ErrorKind string

const (
	// KindNetwork indicates a network-level failure (connection refused,
	// DNS, TLS, etc.)
	KindNetwork ErrorKind = "network"
	// KindHTTP indicates a non-success HTTP status from the storefront.
	KindHTTP ErrorKind = "http"
	// KindParse indicates the response was received but could not be
	// interpreted as listings.
	KindParse ErrorKind = "parse"
	// KindRendering indicates the storefront served a script-only page
	// that cannot be interpreted without a client-side script engine.
	// Browser automation is unsupported, so this is surfaced as a
	// distinct failure rather than an empty result.
	KindRendering ErrorKind = "requires_rendering"
	// KindTimeout indicates the scrape exceeded its time budget.
	KindTimeout ErrorKind = "timeout"
)

// ScrapeError is a structured error from one scraper invocation.
type ScrapeError struct {
	Kind       ErrorKind
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Source, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Source, e.Kind, e.Message)
}

// Unwrap supports errors.Is and errors.As.
func (e *ScrapeError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a network-level scrape error.
func NewNetworkError(source string, cause error) *ScrapeError {
	return &ScrapeError{
		Kind:    KindNetwork,
		Source:  source,
		Message: "request failed",
		Cause:   cause,
	}
}

// NewHTTPError creates an error for a non-success HTTP status.
func NewHTTPError(source string, statusCode int) *ScrapeError {
	return &ScrapeError{
		Kind:       KindHTTP,
		Source:     source,
		StatusCode: statusCode,
		Message:    "storefront returned an error status",
	}
}

// NewParseError creates an error for unusable response content.
func NewParseError(source, message string) *ScrapeError {
	return &ScrapeError{
		Kind:    KindParse,
		Source:  source,
		Message: message,
	}
}

// NewRenderingError creates the distinct "requires client-side rendering"
// error for script-only pages.
func NewRenderingError(source string) *ScrapeError {
	return &ScrapeError{
		Kind:    KindRendering,
		Source:  source,
		Message: "page requires client-side rendering; browser automation is not supported",
	}
}
