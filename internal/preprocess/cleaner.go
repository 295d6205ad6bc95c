package preprocess

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
)

// SeriesCleaner runs outlier detection and interpolation over every column of
// a table. Columns are independent of each other and are cleaned in parallel.
type SeriesCleaner struct {
	detector *OutlierDetector
	interp   *SeriesInterpolator
	workers  int
	log      *logger.Logger
}

// NewSeriesCleaner wires a detector and interpolator. workers <= 0 uses
// GOMAXPROCS.
func NewSeriesCleaner(detector *OutlierDetector, interp *SeriesInterpolator, workers int, log *logger.Logger) *SeriesCleaner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &SeriesCleaner{
		detector: detector,
		interp:   interp,
		workers:  workers,
		log:      logger.OrNop(log),
	}
}

// Clean returns a new table with the same columns, in the same order, where
// every column has had its outliers replaced by interpolated values.
// All column failures are reported together; any failure fails the table.
func (c *SeriesCleaner) Clean(ctx context.Context, table models.NumericTable) (models.NumericTable, error) {
	if err := table.Validate(); err != nil {
		return models.NumericTable{}, fmt.Errorf("clean table: %w", err)
	}

	cols := table.Columns()
	cleaned := make([][]float64, len(cols))
	errs := make([]error, len(cols))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, name := range cols {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			values, err := c.cleanColumn(table, name)
			if err != nil {
				errs[i] = fmt.Errorf("column %q: %w", name, err)
				return nil
			}
			cleaned[i] = values
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.NumericTable{}, err
	}
	if err := multierr.Combine(errs...); err != nil {
		return models.NumericTable{}, fmt.Errorf("clean table: %w", err)
	}

	out := models.NewNumericTable(table.Index)
	for i, name := range cols {
		if err := out.SetColumn(name, cleaned[i]); err != nil {
			return models.NumericTable{}, fmt.Errorf("clean table: %w", err)
		}
	}
	return out, nil
}

func (c *SeriesCleaner) cleanColumn(table models.NumericTable, name string) ([]float64, error) {
	series, ok := table.Column(name)
	if !ok {
		return nil, models.ErrUnknownColumn
	}
	mask, err := c.detector.Detect(series)
	if err != nil {
		return nil, err
	}
	filled, err := c.interp.Interpolate(series, mask)
	if err != nil {
		return nil, err
	}
	return filled.Values, nil
}
