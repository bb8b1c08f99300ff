package processor

import (
	"math"
	"sort"
)

// percentileCuts computes the p and 100-p percentiles of the samples not
// covered by mask, ignoring NaN.
func percentileCuts(samples []float64, mask *FillMask, p float64) (float64, float64, bool) {
	valid := make([]float64, 0, len(samples))
	for i, value := range samples {
		if math.IsNaN(value) || mask.Filled(i) {
			continue
		}
		valid = append(valid, value)
	}
	if len(valid) == 0 {
		return 0, 0, false
	}

	sort.Float64s(valid)
	return percentile(valid, p), percentile(valid, 100-p), true
}

// percentile interpolates linearly between the closest ranks of a sorted
// slice, rank = p/100 * (n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if upper >= n {
		upper = n - 1
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
