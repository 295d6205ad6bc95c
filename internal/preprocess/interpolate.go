package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rms_pipeline/internal/models"
)

// InterpolationOrder is the degree of the local polynomial used to fill gaps.
const InterpolationOrder = 4

// SeriesInterpolator fills missing values with a local polynomial of order
// InterpolationOrder fitted through the nearest known points.
type SeriesInterpolator struct {
	order int
}

// NewSeriesInterpolator returns an order-4 interpolator.
func NewSeriesInterpolator() *SeriesInterpolator {
	return &SeriesInterpolator{order: InterpolationOrder}
}

// MinAnchors is the number of distinct known points a fit needs.
func (p *SeriesInterpolator) MinAnchors() int { return p.order + 1 }

// Interpolate returns a copy of s in which every row whose timestamp is in
// missing, and every row that already held NaN, is replaced by an estimate.
// The index of the result is in UTC. Rows that were neither flagged nor NaN
// keep their exact values. Interior gaps use a local polynomial; gaps before
// the first or after the last known point take that boundary value, so the
// result never contains NaN.
func (p *SeriesInterpolator) Interpolate(s models.TimeSeries, missing models.OutlierMask) (models.TimeSeries, error) {
	if err := s.Validate(); err != nil {
		return models.TimeSeries{}, fmt.Errorf("interpolate %q: %w", s.Name, err)
	}

	out := s.Clone()
	for i, t := range out.Index {
		out.Index[i] = t.UTC()
		if missing.Has(t) {
			out.Values[i] = math.NaN()
		}
	}

	if !floats.HasNaN(out.Values) {
		return out, nil
	}
	if len(out.Index) == 0 {
		return out, nil
	}

	origin := out.Index[0]
	xs, ys := anchors(out, origin)
	if len(xs) < p.MinAnchors() {
		return models.TimeSeries{}, fmt.Errorf("interpolate %q: %w: %d known points, need %d",
			s.Name, ErrInsufficientData, len(xs), p.MinAnchors())
	}

	for i, v := range out.Values {
		if !math.IsNaN(v) {
			continue
		}
		x := hoursSince(origin, out.Index[i])
		if est, ok := boundaryValue(xs, ys, x); ok {
			out.Values[i] = est
			continue
		}
		lo, hi := nearest(xs, x, p.MinAnchors())
		est, err := fitAt(xs[lo:hi], ys[lo:hi], x)
		if err != nil {
			return models.TimeSeries{}, fmt.Errorf("interpolate %q at %s: %w",
				s.Name, out.Index[i].Format(time.RFC3339), err)
		}
		out.Values[i] = est
	}
	return out, nil
}

// anchors collects the known points of s as (hours since origin, value)
// pairs. Points sharing a timestamp collapse into their mean so that every
// anchor has a distinct abscissa.
func anchors(s models.TimeSeries, origin time.Time) (xs, ys []float64) {
	var (
		sum   float64
		count int
	)
	flush := func() {
		if count > 0 {
			ys[len(ys)-1] = sum / float64(count)
		}
	}
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		x := hoursSince(origin, s.Index[i])
		if len(xs) > 0 && xs[len(xs)-1] == x {
			sum += v
			count++
			continue
		}
		flush()
		xs = append(xs, x)
		ys = append(ys, v)
		sum, count = v, 1
	}
	flush()
	return xs, ys
}

// boundaryValue holds the first or last anchor flat outside [xs[0], xs[n-1]].
func boundaryValue(xs, ys []float64, x float64) (float64, bool) {
	switch last := len(xs) - 1; {
	case x < xs[0]:
		return ys[0], true
	case x > xs[last]:
		return ys[last], true
	}
	return 0, false
}

// nearest returns the half-open range [lo, hi) of the k anchors closest to x.
// xs must be sorted ascending and hold at least k entries.
func nearest(xs []float64, x float64, k int) (lo, hi int) {
	pos := sort.SearchFloat64s(xs, x)
	lo, hi = pos, pos
	for hi-lo < k {
		switch {
		case lo == 0:
			hi++
		case hi == len(xs):
			lo--
		case x-xs[lo-1] <= xs[hi]-x:
			lo--
		default:
			hi++
		}
	}
	return lo, hi
}

// fitAt solves for the polynomial through (xs, ys) and evaluates it at x.
// Abscissae are shifted to x and scaled to [-1, 1] before building the
// Vandermonde system, so the value at x is the constant coefficient.
func fitAt(xs, ys []float64, x float64) (float64, error) {
	n := len(xs)
	scale := 0.0
	for _, xi := range xs {
		scale = math.Max(scale, math.Abs(xi-x))
	}
	if scale == 0 {
		return 0, fmt.Errorf("%w: degenerate anchors", ErrInsufficientData)
	}

	v := mat.NewDense(n, n, nil)
	for r, xi := range xs {
		u := (xi - x) / scale
		pow := 1.0
		for c := 0; c < n; c++ {
			v.Set(r, c, pow)
			pow *= u
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(v, mat.NewVecDense(n, append([]float64(nil), ys...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return 0, fmt.Errorf("%w: %v", ErrInsufficientData, err)
		}
	}
	est := coef.AtVec(0)
	if math.IsNaN(est) || math.IsInf(est, 0) {
		return 0, fmt.Errorf("%w: non-finite estimate", ErrInsufficientData)
	}
	return est, nil
}

func hoursSince(origin, t time.Time) float64 {
	return t.Sub(origin).Hours()
}
