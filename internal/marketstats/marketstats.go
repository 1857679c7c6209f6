// Package marketstats reduces a noisy price sample into a robust summary.
// Two successive outlier passes run over the sorted sample: a trimmed-mean
// range cut removes gross mis-scrapes at the extremes, then an IQR filter
// tightens around the bulk of genuine market prices. Both passes fail open:
// when a pass would empty the sample it returns its input unchanged, so a
// pathological sample still yields a usable, if noisier, statistic.
package marketstats

import (
	"math"
	"sort"
)

const (
	// DefaultTrimRatio is the fraction dropped from each end of the
	// sorted sample before IQR filtering.
	DefaultTrimRatio = 0.1
	// DefaultIQRMultiplier widens the interquartile fence.
	DefaultIQRMultiplier = 1.5
)

// Stats is the robust summary of one price sample. The summary fields
// High, Low, Average and Median are meaningful only when Count > 0.
type Stats struct {
	// RawCount is the sample size after discarding non-positive and
	// non-finite values, before any filtering.
	RawCount int

	// Count is the sample size after trimming and IQR filtering.
	// Count <= RawCount always holds.
	Count int

	High    float64
	Low     float64
	Average float64
	Median  float64
}

// ComputeDefault runs Compute with the default trim ratio and IQR
// multiplier.
func ComputeDefault(prices []float64) Stats {
	return Compute(prices, DefaultTrimRatio, DefaultIQRMultiplier)
}

// Compute cleans, trims, IQR-filters and reduces a price sample.
// The input is treated as a multiset; no ordering is required.
func Compute(prices []float64, trimRatio, iqrMultiplier float64) Stats {
	cleaned := clean(prices)
	if len(cleaned) == 0 {
		return Stats{}
	}

	trimmed := trim(cleaned, trimRatio)
	filtered := iqrFilter(trimmed, iqrMultiplier)

	return Stats{
		RawCount: len(cleaned),
		Count:    len(filtered),
		High:     filtered[len(filtered)-1],
		Low:      filtered[0],
		Average:  round2(mean(filtered)),
		Median:   round2(median(filtered)),
	}
}

// clean drops non-positive and non-finite values and returns the
// survivors sorted ascending.
func clean(prices []float64) []float64 {
	cleaned := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		if p > 0 {
			cleaned = append(cleaned, p)
		}
	}
	sort.Float64s(cleaned)
	return cleaned
}

// trim drops trimRatio of the sample from each end. Samples smaller than
// five elements are exempt, and a trim that would leave an empty or
// inverted range is skipped entirely.
func trim(prices []float64, trimRatio float64) []float64 {
	if trimRatio <= 0 || len(prices) < 5 {
		return prices
	}

	trimCount := int(float64(len(prices)) * trimRatio)
	if trimCount == 0 {
		return prices
	}

	start := trimCount
	end := len(prices) - trimCount
	if start >= end {
		return prices
	}

	return prices[start:end]
}

// iqrFilter keeps values within [Q1 - m*IQR, Q3 + m*IQR]. Samples smaller
// than four elements and samples with zero IQR are exempt; a filter that
// would empty the sample returns it unchanged.
func iqrFilter(prices []float64, multiplier float64) []float64 {
	if len(prices) < 4 {
		return prices
	}

	midpoint := len(prices) / 2
	lower := prices[:midpoint]
	upper := prices[midpoint:]
	if len(prices)%2 != 0 {
		// Odd sample: the exact median element belongs to neither half.
		upper = prices[midpoint+1:]
	}

	q1 := median(lower)
	q3 := median(upper)
	iqr := q3 - q1

	if iqr == 0 {
		return prices
	}

	lowBound := q1 - multiplier*iqr
	highBound := q3 + multiplier*iqr

	filtered := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p >= lowBound && p <= highBound {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return prices
	}
	return filtered
}

// median of a sorted, non-empty sample.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
