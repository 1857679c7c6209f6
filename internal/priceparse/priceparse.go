// Package priceparse extracts a numeric price and a currency code from
// scraped text. It is pure and deterministic: no I/O, no locale state.
package priceparse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberToken        = regexp.MustCompile(`-?\d[\d,.]*`)
	decimalSuffixDot   = regexp.MustCompile(`\.\d{1,2}$`)
	decimalSuffixComma = regexp.MustCompile(`,\d{1,2}$`)
)

// DetectCurrency scans text for currency markers in a fixed precedence
// order and returns the first match. This is a heuristic, not a
// locale-aware classifier: a string containing both "$" and "€" always
// resolves to USD because "$" is checked first, and "C$" resolves to USD
// for the same reason.
func DetectCurrency(text string) string {
	upper := strings.ToUpper(text)

	switch {
	case strings.Contains(upper, "₹"):
		return "INR"
	case strings.Contains(upper, "$"):
		return "USD"
	case strings.Contains(upper, "€"):
		return "EUR"
	case strings.Contains(upper, "C$"), strings.Contains(upper, "CAD"):
		return "CAD"
	case strings.Contains(upper, "£"):
		return "GBP"
	}

	return "UNKNOWN"
}

// Parse extracts the first number-like token from text, disambiguates
// comma/period separators, and returns the value together with the
// detected currency. ok is false when no usable positive value exists;
// callers must drop the candidate listing in that case rather than
// substitute a default. The value is returned unrounded.
func Parse(text string) (value float64, currency string, ok bool) {
	if text == "" {
		return 0, "UNKNOWN", false
	}

	currency = DetectCurrency(text)

	token := numberToken.FindString(text)
	if token == "" {
		return 0, currency, false
	}

	normalized := normalizeSeparators(token)

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || value <= 0 {
		return 0, currency, false
	}

	return value, currency, true
}

// normalizeSeparators resolves "," and "." in a number token. A trailing
// separator followed by 1-2 digits is a decimal point; everything else is
// a thousands separator.
func normalizeSeparators(token string) string {
	hasComma := strings.Contains(token, ",")
	hasDot := strings.Contains(token, ".")

	switch {
	case hasComma && hasDot:
		if decimalSuffixDot.MatchString(token) {
			return strings.ReplaceAll(token, ",", "")
		}
		if decimalSuffixComma.MatchString(token) {
			stripped := strings.ReplaceAll(token, ".", "")
			return strings.ReplaceAll(stripped, ",", ".")
		}
		return strings.ReplaceAll(token, ",", "")
	case hasComma:
		if decimalSuffixComma.MatchString(token) {
			return strings.ReplaceAll(token, ",", ".")
		}
		return strings.ReplaceAll(token, ",", "")
	default:
		return token
	}
}
