package service

import (
	"fmt"
	"runtime"
	"time"

	"rms_pipeline/internal/preprocess"
)

// Params configures one pipeline run.
type Params struct {
	Outlier       preprocess.OutlierConfig
	Alarms        preprocess.AlignerConfig
	Workers       int           // concurrent units; <= 0 means GOMAXPROCS
	ColumnWorkers int           // concurrent columns per unit; <= 0 means GOMAXPROCS
	FailFast      bool          // stop the run at the first failing unit
	UnitTimeout   time.Duration // 0 disables the per-unit deadline
}

// DefaultParams returns sensitivity 12, a ±1h window and partial-failure mode.
func DefaultParams() Params {
	return Params{
		Outlier: preprocess.DefaultOutlierConfig(),
		Alarms:  preprocess.DefaultAlignerConfig(),
	}
}

// ParamsFor mirrors run(units, sensitivity, window_hours).
func ParamsFor(sensitivity, windowHours float64) Params {
	p := DefaultParams()
	p.Outlier.Sensitivity = sensitivity
	p.Outlier.Window = preprocess.WindowFromHours(windowHours)
	return p
}

func (p Params) workers() int {
	if p.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}

// Validate checks the stage configs and the timeout.
func (p Params) Validate() error {
	if err := p.Outlier.Validate(); err != nil {
		return err
	}
	if err := p.Alarms.Validate(); err != nil {
		return err
	}
	if p.UnitTimeout < 0 {
		return fmt.Errorf("%w: unit timeout must be >= 0", preprocess.ErrInvalidConfig)
	}
	return nil
}

// UnitFilter narrows what a source load returns.
type UnitFilter struct {
	Units []string  // empty means every unit
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
}
