// Package stats holds the descriptive statistics shared by every view of the
// submission data. All functions are pure.
package stats

import (
	"cmp"
	"math"
	"slices"
)

type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

type Summary struct {
	Count       int         `json:"count"`
	Mean        float64     `json:"mean"`
	Median      float64     `json:"median"`
	StdDev      float64     `json:"std_dev"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	Total       float64     `json:"total"`
	Percentiles Percentiles `json:"percentiles"`
}

// Summarize computes the summary of values. The input is not modified. An
// empty input yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean := Mean(sorted)

	return Summary{
		Count:  len(sorted),
		Mean:   mean,
		Median: Median(sorted),
		StdDev: StdDev(sorted, mean),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Total:  Sum(sorted),
		Percentiles: Percentiles{
			P25: Percentile(sorted, 0.25),
			P50: Percentile(sorted, 0.50),
			P75: Percentile(sorted, 0.75),
			P90: Percentile(sorted, 0.90),
			P95: Percentile(sorted, 0.95),
		},
	}
}

func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Median expects sorted input. Even-sized input averages the two middle values.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// StdDev is the population standard deviation (divides by n).
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Percentile expects sorted input and uses the direct-index method:
// sorted[floor(p*n)], clamped to the last element. No interpolation.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(n)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

type Count[T comparable] struct {
	Value T
	N     int
}

// Tally counts occurrences and returns them by count descending. Ties keep
// first-encountered order.
func Tally[T comparable](items []T) []Count[T] {
	index := make(map[T]int)
	var counts []Count[T]
	for _, it := range items {
		if i, ok := index[it]; ok {
			counts[i].N++
			continue
		}
		index[it] = len(counts)
		counts = append(counts, Count[T]{Value: it, N: 1})
	}
	slices.SortStableFunc(counts, func(a, b Count[T]) int {
		return cmp.Compare(b.N, a.N)
	})
	return counts
}

// MostCommon returns the most frequent item, the first encountered on ties.
func MostCommon[T comparable](items []T) (T, int) {
	counts := Tally(items)
	if len(counts) == 0 {
		var zero T
		return zero, 0
	}
	return counts[0].Value, counts[0].N
}
