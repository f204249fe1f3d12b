package montecarlo

import (
	"math"
	"slices"
)

// HitRate is the whole-number percentage of trials finishing at or above the target.
type HitRate struct {
	Percent int     `json:"percent"`
	Target  float64 `json:"target"`
	Count   int     `json:"count"`
}

// SortBalances returns an ascending copy of values.
func SortBalances(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted
}

// Percentile linearly interpolates between the two nearest ranks of an
// ascending slice. p is clamped to [0, 1]; p=0 is the minimum and p=1 the
// maximum. An empty slice yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = max(0, min(1, p))

	idx := float64(n-1) * p
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(idx-float64(lo))
}

// ComputeHitRate counts values at or above target. It returns nil when the
// target is not positive or there are no values.
func ComputeHitRate(values []float64, target float64) *HitRate {
	if target <= 0 || len(values) == 0 {
		return nil
	}
	count := 0
	for _, v := range values {
		if v >= target {
			count++
		}
	}
	return &HitRate{
		Percent: int(math.Round(100 * float64(count) / float64(len(values)))),
		Target:  target,
		Count:   count,
	}
}

// ShareBelow returns the whole-number percentage of values strictly below threshold.
func ShareBelow(values []float64, threshold float64) int {
	return int(math.Round(shareBelow(values, threshold)))
}

// ShareBelowTenths is ShareBelow rounded to one decimal place.
func ShareBelowTenths(values []float64, threshold float64) float64 {
	return math.Round(10*shareBelow(values, threshold)) / 10
}

func shareBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v < threshold {
			count++
		}
	}
	return 100 * float64(count) / float64(len(values))
}

// Summary holds the descriptive statistics persisted with a run.
type Summary struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Summarize computes min, max and mean of an ascending slice.
func Summarize(sorted []float64) Summary {
	if len(sorted) == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return Summary{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: sum / float64(len(sorted)),
	}
}
