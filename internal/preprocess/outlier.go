package preprocess

import (
	"fmt"
	"math"
	"sort"
	"time"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
)

// OutlierDetector flags points that sit too far from their local median,
// measured in units of the local median absolute deviation.
type OutlierDetector struct {
	cfg OutlierConfig
	log *logger.Logger
}

// NewOutlierDetector validates cfg and returns a detector. log may be nil.
func NewOutlierDetector(cfg OutlierConfig, log *logger.Logger) (*OutlierDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &OutlierDetector{cfg: cfg, log: logger.OrNop(log)}, nil
}

// Config returns the detector settings.
func (d *OutlierDetector) Config() OutlierConfig { return d.cfg }

// Detect returns the timestamps whose value deviates from the median of the
// surrounding window by more than Sensitivity × MAD.
//
// The window of point i covers [max(t_i-W, start), min(t_i+W, end)], both ends
// inclusive, so it shrinks near the edges of the series. A window with zero MAD
// flags every value that differs from its median. NaN values are skipped.
func (d *OutlierDetector) Detect(s models.TimeSeries) (models.OutlierMask, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("detect outliers in %q: %w", s.Name, err)
	}

	mask := make(models.OutlierMask)
	n := s.Len()
	if n == 0 {
		return mask, nil
	}

	start, end := s.Start(), s.End()
	scratch := make([]float64, 0, 64)

	for i := 0; i < n; i++ {
		v := s.Values[i]
		if math.IsNaN(v) {
			continue
		}
		lo := maxTime(s.Index[i].Add(-d.cfg.Window), start)
		hi := minTime(s.Index[i].Add(d.cfg.Window), end)

		first := sort.Search(n, func(k int) bool { return !s.Index[k].Before(lo) })
		last := sort.Search(n, func(k int) bool { return s.Index[k].After(hi) })

		scratch = scratch[:0]
		for k := first; k < last; k++ {
			if w := s.Values[k]; !math.IsNaN(w) {
				scratch = append(scratch, w)
			}
		}
		if len(scratch) == 0 {
			continue
		}

		med, mad := medianAbsDev(scratch)
		if math.Abs(v-med) > d.cfg.Sensitivity*mad {
			mask.Add(s.Index[i])
		}
	}

	d.log.Debugw("outliers_identified",
		"series", s.Name,
		"outliers", mask.Len(),
		"total", n,
	)
	return mask, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
