package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rms_pipeline/internal/models"
	"rms_pipeline/internal/preprocess"
)

var t0 = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func gridIndex(n int, step time.Duration) []time.Time {
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = t0.Add(time.Duration(i) * step)
	}
	return idx
}

func wave(n int, base, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amp*math.Sin(float64(i)/4)
	}
	return out
}

// unitRecord builds a 12-row, 10-minute unit with every feature input.
// Columns named in drop are left out.
func unitRecord(t *testing.T, events models.EventLog, drop ...string) models.UnitRecord {
	t.Helper()
	const n = 12
	cols := map[string][]float64{
		preprocess.ColumnMotorCurrent: wave(n, 2, 0.1),
		preprocess.ColumnMotorVoltage: wave(n, 100, 1),
		preprocess.ColumnRPM:          wave(n, 50, 2),
		preprocess.ColumnMotorTemp:    wave(n, 80, 0.5),
		preprocess.ColumnInletTemp:    wave(n, 20, 0.2),
	}
	for _, c := range drop {
		delete(cols, c)
	}

	tbl := models.NewNumericTable(gridIndex(n, 10*time.Minute))
	for _, name := range preprocess.RequiredFeatureColumns {
		if vals, ok := cols[name]; ok {
			require.NoError(t, tbl.SetColumn(name, vals))
		}
	}
	if events == nil {
		events = models.EventLog{}
	}
	return models.UnitRecord{RMS: tbl, Alarms: events}
}
