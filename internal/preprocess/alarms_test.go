package preprocess

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rms_pipeline/internal/models"
)

func alignTable(t *testing.T, n int) models.NumericTable {
	t.Helper()
	return newTable(t, gridIndex(n, 10*time.Minute), map[string][]float64{"rpm": make([]float64, n)}, "rpm")
}

func indicators(t *testing.T, tbl models.NumericTable) (warning, errored []float64) {
	t.Helper()
	warning, ok := tbl.Values(models.ColumnWarningOccurred)
	require.True(t, ok)
	errored, ok = tbl.Values(models.ColumnErrorOccurred)
	require.True(t, ok)
	return warning, errored
}

func at(d time.Duration, msg string) models.AlarmEvent {
	return models.AlarmEvent{OccurredAt: t0.Add(d), Message: msg}
}

func TestAlign_WarningInsideFirstInterval(t *testing.T) {
	t.Parallel()

	tbl := alignTable(t, 3)
	err := mustAligner(t).Align(&tbl, models.EventLog{at(5*time.Minute, "warning: overheat")})
	require.NoError(t, err)

	warning, errored := indicators(t, tbl)
	assert.Equal(t, []float64{1, 0, 0}, warning)
	assert.Equal(t, []float64{0, 0, 0}, errored)
}

func TestAlign_EmptyLogYieldsZeroColumns(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 2, 7} {
		tbl := alignTable(t, n)
		require.NoError(t, mustAligner(t).Align(&tbl, nil))

		warning, errored := indicators(t, tbl)
		assert.Equal(t, make([]float64, n), warning)
		assert.Equal(t, make([]float64, n), errored)
	}
}

func TestAlign_InvariantToEventOrder(t *testing.T) {
	t.Parallel()

	events := models.EventLog{
		at(3*time.Minute, "warning"),
		at(12*time.Minute, "error: phase loss"),
		at(20*time.Minute, "Warning: vibration"),
		at(33*time.Minute, "info: restart"),
		at(41*time.Minute, "ERROR"),
		at(47*time.Minute, "warning"),
		at(2*time.Hour, "error"),
	}

	ref := alignTable(t, 8)
	require.NoError(t, mustAligner(t).Align(&ref, events))
	wantW, wantE := indicators(t, ref)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append(models.EventLog(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		tbl := alignTable(t, 8)
		require.NoError(t, mustAligner(t).Align(&tbl, shuffled))
		gotW, gotE := indicators(t, tbl)
		assert.Equal(t, wantW, gotW)
		assert.Equal(t, wantE, gotE)
	}
}

func TestAlign_IntervalIsClosedOnBothEnds(t *testing.T) {
	t.Parallel()

	// An alarm exactly on a sample belongs to both adjacent intervals.
	tbl := alignTable(t, 4)
	require.NoError(t, mustAligner(t).Align(&tbl, models.EventLog{at(10*time.Minute, "error")}))

	_, errored := indicators(t, tbl)
	assert.Equal(t, []float64{1, 1, 0, 0}, errored)
}

func TestAlign_LastTwoRowsAreNeverMarked(t *testing.T) {
	t.Parallel()

	// Rows t0..t0+40m: only rows 0..2 can carry a flag. The alarm in the
	// final interval [30m, 40m] is dropped, matching the historical bound.
	tbl := alignTable(t, 5)
	events := models.EventLog{
		at(25*time.Minute, "warning"),
		at(35*time.Minute, "error"),
		at(40*time.Minute, "error"),
	}
	require.NoError(t, mustAligner(t).Align(&tbl, events))

	warning, errored := indicators(t, tbl)
	assert.Equal(t, []float64{0, 0, 1, 0, 0}, warning)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, errored)
}

func TestAlign_BothIndicatorsCanBeSet(t *testing.T) {
	t.Parallel()

	tbl := alignTable(t, 3)
	require.NoError(t, mustAligner(t).Align(&tbl, models.EventLog{at(time.Minute, "warning escalated to error")}))

	warning, errored := indicators(t, tbl)
	assert.Equal(t, 1.0, warning[0])
	assert.Equal(t, 1.0, errored[0])
}

func TestAlign_EventsOutsideTableAreIgnored(t *testing.T) {
	t.Parallel()

	tbl := alignTable(t, 4)
	events := models.EventLog{at(-time.Hour, "error"), at(5*time.Hour, "warning")}
	require.NoError(t, mustAligner(t).Align(&tbl, events))

	warning, errored := indicators(t, tbl)
	assert.Equal(t, make([]float64, 4), warning)
	assert.Equal(t, make([]float64, 4), errored)
}

func TestAlign_UnparseableTimestampDegradesToZeros(t *testing.T) {
	t.Parallel()

	tbl := alignTable(t, 4)
	events := models.EventLog{
		at(time.Minute, "warning"),
		{Raw: "31/02/2024 25:00", Message: "error"},
	}
	err := mustAligner(t).Align(&tbl, events)
	require.ErrorIs(t, err, models.ErrUnparseableTimestamp)

	warning, errored := indicators(t, tbl)
	assert.Equal(t, make([]float64, 4), warning)
	assert.Equal(t, make([]float64, 4), errored)
}

func TestAlign_UnsortedIndexDegradesToZeros(t *testing.T) {
	t.Parallel()

	idx := []time.Time{t0, t0.Add(20 * time.Minute), t0.Add(10 * time.Minute), t0.Add(30 * time.Minute)}
	tbl := newTable(t, idx, map[string][]float64{"rpm": {1, 2, 3, 4}}, "rpm")

	err := mustAligner(t).Align(&tbl, models.EventLog{at(5*time.Minute, "warning")})
	require.ErrorIs(t, err, models.ErrUnsortedIndex)

	warning, _ := indicators(t, tbl)
	assert.Equal(t, make([]float64, 4), warning)
}

func TestAlign_CustomTokens(t *testing.T) {
	t.Parallel()

	a, err := NewAlarmAligner(AlignerConfig{WarningToken: "WARN", ErrorToken: "fault"}, nil)
	require.NoError(t, err)

	tbl := alignTable(t, 3)
	require.NoError(t, a.Align(&tbl, models.EventLog{at(time.Minute, "Drive FAULT"), at(2*time.Minute, "warn: low oil")}))

	warning, errored := indicators(t, tbl)
	assert.Equal(t, 1.0, warning[0])
	assert.Equal(t, 1.0, errored[0])
}

func TestNewAlarmAligner_RejectsEmptyTokens(t *testing.T) {
	t.Parallel()

	_, err := NewAlarmAligner(AlignerConfig{WarningToken: " ", ErrorToken: "error"}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
