package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
)

// Input channels the feature stage reads.
const (
	ColumnMotorCurrent = "motor_current"
	ColumnMotorVoltage = "motor_voltage"
	ColumnRPM          = "rpm"
	ColumnMotorTemp    = "motor_temp"
	ColumnInletTemp    = "inlet_temp"
)

// ReasonDivisionByZero marks torque rows computed with rpm == 0.
const ReasonDivisionByZero = "division_by_zero"

// RequiredFeatureColumns lists the channels Derive needs, in check order.
var RequiredFeatureColumns = []string{
	ColumnMotorCurrent,
	ColumnMotorVoltage,
	ColumnRPM,
	ColumnMotorTemp,
	ColumnInletTemp,
}

// FeatureDeriver appends power, torque and temperature difference columns.
type FeatureDeriver struct {
	log *logger.Logger
}

// NewFeatureDeriver returns a deriver. log may be nil.
func NewFeatureDeriver(log *logger.Logger) *FeatureDeriver {
	return &FeatureDeriver{log: logger.OrNop(log)}
}

// Derive extends table in place with:
//
//	power     = motor_current * motor_voltage
//	torque    = power / rpm
//	temp_diff = motor_temp - inlet_temp
//
// rpm == 0 follows IEEE 754 (±Inf, or NaN for 0/0) and yields one flag per
// affected row. Source columns are left untouched.
func (f *FeatureDeriver) Derive(table *models.NumericTable) ([]models.DataQualityFlag, error) {
	cols := make(map[string][]float64, len(RequiredFeatureColumns))
	for _, name := range RequiredFeatureColumns {
		v, ok := table.Values(name)
		if !ok {
			return nil, fmt.Errorf("derive features: %w: %q", ErrMissingColumn, name)
		}
		cols[name] = v
	}

	n := table.Len()
	power := make([]float64, n)
	torque := make([]float64, n)
	tempDiff := make([]float64, n)

	floats.MulTo(power, cols[ColumnMotorCurrent], cols[ColumnMotorVoltage])
	floats.DivTo(torque, power, cols[ColumnRPM])
	floats.SubTo(tempDiff, cols[ColumnMotorTemp], cols[ColumnInletTemp])

	var flags []models.DataQualityFlag
	for i, rpm := range cols[ColumnRPM] {
		if rpm == 0 {
			flags = append(flags, models.DataQualityFlag{
				Column: models.ColumnTorque,
				Row:    i,
				At:     table.Index[i],
				Reason: ReasonDivisionByZero,
			})
		}
	}

	for _, c := range []struct {
		name   string
		values []float64
	}{
		{models.ColumnPower, power},
		{models.ColumnTorque, torque},
		{models.ColumnTempDiff, tempDiff},
	} {
		if err := table.SetColumn(c.name, c.values); err != nil {
			return nil, fmt.Errorf("derive features: %w", err)
		}
	}

	if len(flags) > 0 {
		f.log.Warnw("torque_division_by_zero", "rows", len(flags))
	}
	return flags, nil
}
