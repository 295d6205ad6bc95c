package preprocess

import (
	"fmt"
	"sort"
	"strings"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
)

// AlarmAligner projects a sparse alarm log onto the sampling grid of a table.
// Each row i describes the interval [t_i, t_{i+1}]: its indicator is 1 when a
// matching alarm occurred inside that interval. Samples are regular enough
// that resampling the alarms would only add noise.
type AlarmAligner struct {
	warningToken string
	errorToken   string
	log          *logger.Logger
}

// NewAlarmAligner validates cfg and returns an aligner. log may be nil.
func NewAlarmAligner(cfg AlignerConfig, log *logger.Logger) (*AlarmAligner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AlarmAligner{
		warningToken: strings.ToLower(cfg.WarningToken),
		errorToken:   strings.ToLower(cfg.ErrorToken),
		log:          logger.OrNop(log),
	}, nil
}

// Align appends warning_occurred and error_occurred (0 or 1) to table.
// Row i is marked when an event falls in [t_i, t_{i+1}] and its message
// contains the warning or error token. Token matching is case-insensitive,
// so "Warning: overheat" and "WARNING" both count as warnings.
//
// Only rows 0..n-3 can be marked and the last two rows always stay 0; the
// final interval [t_{n-2}, t_{n-1}] is never scanned.
//
// If the table index is unsorted or an alarm has no parsed timestamp, the
// columns are still appended with all zeros and the cause is returned.
func (a *AlarmAligner) Align(table *models.NumericTable, events models.EventLog) error {
	n := table.Len()
	warning := make([]float64, n)
	errored := make([]float64, n)

	cause := a.scan(table, events, warning, errored)
	if cause != nil {
		clear(warning)
		clear(errored)
		a.log.Warnw("alarm_alignment_degraded", "err", cause)
	}

	if err := table.SetColumn(models.ColumnWarningOccurred, warning); err != nil {
		return fmt.Errorf("align alarms: %w", err)
	}
	if err := table.SetColumn(models.ColumnErrorOccurred, errored); err != nil {
		return fmt.Errorf("align alarms: %w", err)
	}
	return cause
}

func (a *AlarmAligner) scan(table *models.NumericTable, events models.EventLog, warning, errored []float64) error {
	if !models.IsSorted(table.Index) {
		return fmt.Errorf("align alarms: %w", models.ErrUnsortedIndex)
	}
	if ev, bad := events.FirstInvalid(); bad {
		return fmt.Errorf("align alarms: %w: %q", models.ErrUnparseableTimestamp, ev.Raw)
	}
	if len(events) == 0 {
		return nil
	}

	sorted := events.Sorted()
	for i := 0; i < table.Len()-2; i++ {
		from, to := table.Index[i], table.Index[i+1]
		k := sort.Search(len(sorted), func(j int) bool {
			return !sorted[j].OccurredAt.Before(from)
		})
		for ; k < len(sorted) && !sorted[k].OccurredAt.After(to); k++ {
			msg := strings.ToLower(sorted[k].Message)
			if strings.Contains(msg, a.warningToken) {
				warning[i] = 1
			}
			if strings.Contains(msg, a.errorToken) {
				errored[i] = 1
			}
		}
	}
	return nil
}
