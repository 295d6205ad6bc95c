package preprocess

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rms_pipeline/internal/models"
)

func quadratic(x float64) float64 { return 2 + 0.5*x - 0.1*x*x }

func quadraticSeries(n int) models.TimeSeries {
	values := make([]float64, n)
	for i := range values {
		values[i] = quadratic(float64(i))
	}
	return hourlySeries("motor_current", values...)
}

func TestInterpolate_SpikeReplacedCloseToNeighbours(t *testing.T) {
	t.Parallel()

	s := hourlySeries("motor_temp", 10, 10, 10, 10, 100, 10, 10)
	mask := models.NewOutlierMask(s.Index[4])

	out, err := NewSeriesInterpolator().Interpolate(s, mask)
	require.NoError(t, err)

	got := out.Values[4]
	assert.GreaterOrEqual(t, got, 10.0-1e-9)
	assert.Less(t, got, 55.0, "estimate must sit closer to 10 than to 100")
	assert.InDelta(t, 10.0, got, 1e-9)
}

func TestInterpolate_RoundTripKeepsKnownValuesExactly(t *testing.T) {
	t.Parallel()

	s := quadraticSeries(12)
	removed := []int{2, 4, 5, 9}
	mask := models.NewOutlierMask()
	for _, i := range removed {
		mask.Add(s.Index[i])
	}

	out, err := NewSeriesInterpolator().Interpolate(s, mask)
	require.NoError(t, err)
	require.Equal(t, s.Len(), out.Len())

	isRemoved := map[int]bool{}
	for _, i := range removed {
		isRemoved[i] = true
	}
	for i := range s.Values {
		if isRemoved[i] {
			assert.InDelta(t, quadratic(float64(i)), out.Values[i], 1e-6, "row %d", i)
			continue
		}
		assert.Equal(t, s.Values[i], out.Values[i], "row %d must be untouched", i)
	}
}

func TestInterpolate_EndsTakeBoundaryValues(t *testing.T) {
	t.Parallel()

	s := quadraticSeries(8)
	mask := models.NewOutlierMask(s.Index[0], s.Index[1], s.Index[7])

	out, err := NewSeriesInterpolator().Interpolate(s, mask)
	require.NoError(t, err)
	assert.Equal(t, 0, out.MissingCount())
	assert.Equal(t, quadratic(2), out.Values[0])
	assert.Equal(t, quadratic(2), out.Values[1])
	assert.Equal(t, quadratic(6), out.Values[7])
}

func TestInterpolate_NoisyTailStaysWithinKnownRange(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	s := hourlySeries("rpm", 10, 11, 10, 11, 10, nan, nan, nan, nan, nan, nan)

	out, err := NewSeriesInterpolator().Interpolate(s, nil)
	require.NoError(t, err)
	for i := 5; i < s.Len(); i++ {
		assert.Equal(t, 10.0, out.Values[i], "row %d", i)
	}
}

func TestInterpolate_NoisyHeadStaysWithinKnownRange(t *testing.T) {
	t.Parallel()

	s := hourlySeries("rpm", 0, 0, 0, 1500, 1496, 1503, 1492, 1501, 1498)
	mask := models.NewOutlierMask(s.Index[0], s.Index[1], s.Index[2])

	out, err := NewSeriesInterpolator().Interpolate(s, mask)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1500.0, out.Values[i], "row %d", i)
	}
}

func TestInterpolate_FillsPreexistingNaN(t *testing.T) {
	t.Parallel()

	s := hourlySeries("rpm", 1, 2, 3, math.NaN(), 5, 6, 7)
	out, err := NewSeriesInterpolator().Interpolate(s, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, out.Values[3], 1e-9)
}

func TestInterpolate_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	s := quadraticSeries(8)
	before := append([]float64(nil), s.Values...)

	_, err := NewSeriesInterpolator().Interpolate(s, models.NewOutlierMask(s.Index[3]))
	require.NoError(t, err)
	assert.Equal(t, before, s.Values)
}

func TestInterpolate_DuplicateTimestampsAreAllReplaced(t *testing.T) {
	t.Parallel()

	idx := gridIndex(8, time.Hour)
	idx = append(idx[:4], append([]time.Time{idx[3]}, idx[4:]...)...)
	values := []float64{0, 1, 2, 3, 99, 4, 5, 6, 7}
	s := models.NewTimeSeries(idx, values)

	out, err := NewSeriesInterpolator().Interpolate(s, models.NewOutlierMask(idx[3]))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, out.Values[3], 1e-6)
	assert.InDelta(t, 3.0, out.Values[4], 1e-6)
}

func TestInterpolate_NormalizesIndexToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*3600)
	s := quadraticSeries(6)
	for i := range s.Index {
		s.Index[i] = s.Index[i].In(loc)
	}

	out, err := NewSeriesInterpolator().Interpolate(s, models.NewOutlierMask(s.Index[2]))
	require.NoError(t, err)
	for i, ts := range out.Index {
		assert.Equal(t, time.UTC, ts.Location())
		assert.True(t, ts.Equal(s.Index[i]))
	}
}

func TestInterpolate_InsufficientData(t *testing.T) {
	t.Parallel()

	s := hourlySeries("torque", 1, 2, 3, 4, 5)
	_, err := NewSeriesInterpolator().Interpolate(s, models.NewOutlierMask(s.Index[2]))
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "torque")
}

func TestInterpolate_ShortSeriesWithNothingToFill(t *testing.T) {
	t.Parallel()

	s := hourlySeries("x", 1, 2, 3)
	out, err := NewSeriesInterpolator().Interpolate(s, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Values, out.Values)
}

func TestNearest(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 2, 3, 5, 6}
	cases := []struct {
		name   string
		x      float64
		lo, hi int
	}{
		{"interior gap", 4, 1, 6},
		{"before first", -1, 0, 5},
		{"after last", 9, 1, 6},
		{"left side", 1.5, 0, 5},
	}
	for _, tc := range cases {
		lo, hi := nearest(xs, tc.x, 5)
		assert.Equal(t, tc.lo, lo, tc.name)
		assert.Equal(t, tc.hi, hi, tc.name)
	}
}

func TestAnchors_CollapseDuplicates(t *testing.T) {
	t.Parallel()

	idx := []time.Time{t0, t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)}
	s := models.NewTimeSeries(idx, []float64{2, 4, math.NaN(), 8})

	xs, ys := anchors(s, t0)
	assert.Equal(t, []float64{0, 2}, xs)
	assert.Equal(t, []float64{3, 8}, ys)
}
