package preprocess

import (
	"math"
	"sort"
)

// median sorts xs in place and returns its median. Even-length input yields
// the mean of the two middle values. xs must be non-empty.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// medianAbsDev returns median(xs) and median(|xs - median(xs)|).
// xs is used as scratch space and is reordered/overwritten.
func medianAbsDev(xs []float64) (med, mad float64) {
	med = median(xs)
	for i, v := range xs {
		xs[i] = math.Abs(v - med)
	}
	return med, median(xs)
}
