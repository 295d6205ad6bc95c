package preprocess

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rms_pipeline/internal/models"
)

var t0 = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func gridIndex(n int, step time.Duration) []time.Time {
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = t0.Add(time.Duration(i) * step)
	}
	return idx
}

func hourlySeries(name string, values ...float64) models.TimeSeries {
	s := models.NewTimeSeries(gridIndex(len(values), time.Hour), values)
	s.Name = name
	return s
}

// smoothValues is a drifting sine: no point stands out from its neighbours.
func smoothValues(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + 0.05*float64(i) + 3*math.Sin(float64(i)/5)
	}
	return out
}

func newTable(t *testing.T, index []time.Time, cols map[string][]float64, order ...string) models.NumericTable {
	t.Helper()
	tbl := models.NewNumericTable(index)
	for _, name := range order {
		require.NoError(t, tbl.SetColumn(name, cols[name]))
	}
	return tbl
}

func mustDetector(t *testing.T, cfg OutlierConfig) *OutlierDetector {
	t.Helper()
	d, err := NewOutlierDetector(cfg, nil)
	require.NoError(t, err)
	return d
}

func mustAligner(t *testing.T) *AlarmAligner {
	t.Helper()
	a, err := NewAlarmAligner(DefaultAlignerConfig(), nil)
	require.NoError(t, err)
	return a
}
