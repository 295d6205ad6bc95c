package models

import (
	"time"
)

// Names of the columns the feature and alarm stages produce.
const (
	ColumnPower           = "power"
	ColumnTorque          = "torque"
	ColumnTempDiff        = "temp_diff"
	ColumnWarningOccurred = "warning_occurred"
	ColumnErrorOccurred   = "error_occurred"
)

// UnitRecord is everything loaded for one physical unit.
type UnitRecord struct {
	RMS    NumericTable
	Alarms EventLog
}

// DataQualityFlag marks a non-fatal anomaly in a derived value.
type DataQualityFlag struct {
	Column string    `json:"column"`
	Row    int       `json:"row"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// EnrichedTable is the terminal output for one unit.
type EnrichedTable struct {
	NumericTable
	Flags []DataQualityFlag
}
