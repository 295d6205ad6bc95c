package preprocess

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rms_pipeline/internal/models"
)

func featureTable(t *testing.T, rows ...[5]float64) models.NumericTable {
	t.Helper()
	cols := make(map[string][]float64)
	for _, r := range rows {
		for i, name := range RequiredFeatureColumns {
			cols[name] = append(cols[name], r[i])
		}
	}
	return newTable(t, gridIndex(len(rows), 10*time.Minute), cols, RequiredFeatureColumns...)
}

func TestDerive_ComputesFeatures(t *testing.T) {
	t.Parallel()

	// current, voltage, rpm, motor_temp, inlet_temp
	tbl := featureTable(t, [5]float64{2, 100, 50, 80, 20})

	flags, err := NewFeatureDeriver(nil).Derive(&tbl)
	require.NoError(t, err)
	assert.Empty(t, flags)

	power, _ := tbl.Values(models.ColumnPower)
	torque, _ := tbl.Values(models.ColumnTorque)
	diff, _ := tbl.Values(models.ColumnTempDiff)
	assert.Equal(t, []float64{200}, power)
	assert.Equal(t, []float64{4}, torque)
	assert.Equal(t, []float64{60}, diff)

	assert.Equal(t, append(append([]string(nil), RequiredFeatureColumns...),
		models.ColumnPower, models.ColumnTorque, models.ColumnTempDiff), tbl.Columns())
}

func TestDerive_ZeroRPMIsFlaggedNotFatal(t *testing.T) {
	t.Parallel()

	tbl := featureTable(t,
		[5]float64{2, 100, 0, 80, 20},
		[5]float64{-2, 100, 0, 80, 20},
		[5]float64{0, 100, 0, 80, 20},
		[5]float64{1, 10, 5, 30, 20},
	)

	flags, err := NewFeatureDeriver(nil).Derive(&tbl)
	require.NoError(t, err)

	torque, _ := tbl.Values(models.ColumnTorque)
	assert.True(t, math.IsInf(torque[0], 1))
	assert.True(t, math.IsInf(torque[1], -1))
	assert.True(t, math.IsNaN(torque[2]))
	assert.Equal(t, 2.0, torque[3])

	require.Len(t, flags, 3)
	for i, f := range flags {
		assert.Equal(t, i, f.Row)
		assert.Equal(t, models.ColumnTorque, f.Column)
		assert.Equal(t, ReasonDivisionByZero, f.Reason)
		assert.True(t, f.At.Equal(tbl.Index[i]))
	}
}

func TestDerive_MissingColumn(t *testing.T) {
	t.Parallel()

	for _, missing := range RequiredFeatureColumns {
		missing := missing
		t.Run(missing, func(t *testing.T) {
			t.Parallel()

			tbl := models.NewNumericTable(gridIndex(2, time.Hour))
			for _, name := range RequiredFeatureColumns {
				if name != missing {
					require.NoError(t, tbl.SetColumn(name, []float64{1, 2}))
				}
			}

			_, err := NewFeatureDeriver(nil).Derive(&tbl)
			require.ErrorIs(t, err, ErrMissingColumn)
			assert.Contains(t, err.Error(), missing)
			assert.False(t, tbl.HasColumn(models.ColumnPower), "no column may be added on failure")
		})
	}
}

func TestDerive_LeavesSourceColumnsUntouched(t *testing.T) {
	t.Parallel()

	tbl := featureTable(t, [5]float64{3, 230, 1500, 65, 25}, [5]float64{3.1, 231, 1490, 66, 25})
	before := tbl.Clone()

	_, err := NewFeatureDeriver(nil).Derive(&tbl)
	require.NoError(t, err)

	for _, name := range RequiredFeatureColumns {
		want, _ := before.Values(name)
		got, _ := tbl.Values(name)
		assert.Equal(t, want, got, name)
	}
}
