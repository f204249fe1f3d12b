package montecarlo

import "math"

// DefaultBuckets is the histogram width used when none is requested.
const DefaultBuckets = 12

// MaxBuckets bounds the requested bucket count.
const MaxBuckets = 64

// Bucket is one equal-width histogram bin covering [Lower, Upper).
// The last bucket also includes Upper.
type Bucket struct {
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Count       int     `json:"count"`
	AboveTarget bool    `json:"above_target"`
}

// Midpoint returns the centre of the bucket range.
func (b Bucket) Midpoint() float64 {
	return (b.Lower + b.Upper) / 2
}

// Histogram partitions an ascending slice into equal-width buckets between
// its minimum and maximum. A zero-width range collapses to one bucket
// holding every value. AboveTarget marks buckets whose midpoint is at or above
// target; it is always false when target is not positive.
func Histogram(sorted []float64, buckets int, target float64) []Bucket {
	if len(sorted) == 0 {
		return nil
	}
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	buckets = min(buckets, MaxBuckets)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi <= lo {
		return []Bucket{{
			Lower:       lo,
			Upper:       hi,
			Count:       len(sorted),
			AboveTarget: target > 0 && lo >= target,
		}}
	}

	width := (hi - lo) / float64(buckets)
	out := make([]Bucket, buckets)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[buckets-1].Upper = hi

	for _, v := range sorted {
		i := int(math.Floor((v - lo) / width))
		if i >= buckets {
			i = buckets - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}

	if target > 0 {
		for i := range out {
			out[i].AboveTarget = out[i].Midpoint() >= target
		}
	}
	return out
}
