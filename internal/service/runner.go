package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
	"rms_pipeline/internal/preprocess"
)

// UnitResult is the outcome of one unit's pipeline.
type UnitResult struct {
	UnitID   string
	Table    *models.EnrichedTable
	Warnings []error // non-fatal: alarm alignment degraded
	Err      error
	Duration time.Duration
}

// RunReport aggregates every unit of a run. A unit appears either in Results
// or in Errors, never both.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   map[string]*models.EnrichedTable
	Errors    map[string]error
	Warnings  map[string][]error
}

func newRunReport() RunReport {
	return RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   make(map[string]*models.EnrichedTable),
		Errors:    make(map[string]error),
		Warnings:  make(map[string][]error),
	}
}

func (r *RunReport) add(res UnitResult) {
	if len(res.Warnings) > 0 {
		r.Warnings[res.UnitID] = res.Warnings
	}
	if res.Err != nil {
		r.Errors[res.UnitID] = res.Err
		return
	}
	r.Results[res.UnitID] = res.Table
}

// Err combines every unit error, ordered by unit id.
func (r RunReport) Err() error {
	ids := make([]string, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var err error
	for _, id := range ids {
		err = multierr.Append(err, fmt.Errorf("unit %s: %w", id, r.Errors[id]))
	}
	return err
}

// PipelineRunner runs clean -> derive -> align for every unit.
type PipelineRunner struct {
	log *logger.Logger
}

// NewPipelineRunner returns a runner. log may be nil.
func NewPipelineRunner(log *logger.Logger) *PipelineRunner {
	return &PipelineRunner{log: logger.OrNop(log).Component("pipeline")}
}

type stages struct {
	cleaner *preprocess.SeriesCleaner
	deriver *preprocess.FeatureDeriver
	aligner *preprocess.AlarmAligner
}

func (r *PipelineRunner) build(p Params) (*stages, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	detector, err := preprocess.NewOutlierDetector(p.Outlier, r.log)
	if err != nil {
		return nil, err
	}
	aligner, err := preprocess.NewAlarmAligner(p.Alarms, r.log)
	if err != nil {
		return nil, err
	}
	return &stages{
		cleaner: preprocess.NewSeriesCleaner(detector, preprocess.NewSeriesInterpolator(), p.ColumnWorkers, r.log),
		deriver: preprocess.NewFeatureDeriver(r.log),
		aligner: aligner,
	}, nil
}

// ProcessUnit runs the pipeline for a single unit.
func (r *PipelineRunner) ProcessUnit(ctx context.Context, unitID string, rec models.UnitRecord, p Params) UnitResult {
	st, err := r.build(p)
	if err != nil {
		return UnitResult{UnitID: unitID, Err: err}
	}
	return r.process(ctx, st, unitID, rec, p.UnitTimeout)
}

func (r *PipelineRunner) process(ctx context.Context, st *stages, unitID string, rec models.UnitRecord, timeout time.Duration) (res UnitResult) {
	started := time.Now()
	res.UnitID = unitID
	defer func() { res.Duration = time.Since(started) }()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cleaned, err := st.cleaner.Clean(ctx, rec.RMS)
	if err != nil {
		res.Err = err
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	flags, err := st.deriver.Derive(&cleaned)
	if err != nil {
		res.Err = err
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	if err := st.aligner.Align(&cleaned, rec.Alarms); err != nil {
		res.Warnings = append(res.Warnings, err)
	}

	res.Table = &models.EnrichedTable{NumericTable: cleaned, Flags: flags}
	return res
}

// Run processes every unit and returns the merged report. Failing units are
// recorded in the report and do not stop the others unless p.FailFast is set,
// in which case the first failure is returned and pending units are canceled.
// The returned error is non-nil only for fail-fast, invalid params or a
// canceled ctx; use RunReport.Err for per-unit failures.
func (r *PipelineRunner) Run(ctx context.Context, units map[string]models.UnitRecord, p Params) (RunReport, error) {
	report := newRunReport()
	st, err := r.build(p)
	if err != nil {
		return report, err
	}

	r.log.Infow("run_started", "run_id", report.RunID, "units", len(units), "fail_fast", p.FailFast)

	var mu sync.Mutex
	err = r.execute(ctx, st, units, p, func(res UnitResult) {
		mu.Lock()
		defer mu.Unlock()
		report.add(res)
	})
	report.Duration = time.Since(report.StartedAt)

	r.log.Infow("run_finished",
		"run_id", report.RunID,
		"succeeded", len(report.Results),
		"failed", len(report.Errors),
		"duration", report.Duration,
	)
	if err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// Stream processes every unit and emits each result as soon as it is ready.
// The channel is closed once all units are done.
func (r *PipelineRunner) Stream(ctx context.Context, units map[string]models.UnitRecord, p Params) (<-chan UnitResult, error) {
	st, err := r.build(p)
	if err != nil {
		return nil, err
	}

	out := make(chan UnitResult, len(units))
	go func() {
		defer close(out)
		_ = r.execute(ctx, st, units, p, func(res UnitResult) { out <- res })
	}()
	return out, nil
}

func (r *PipelineRunner) execute(ctx context.Context, st *stages, units map[string]models.UnitRecord, p Params, emit func(UnitResult)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for _, id := range sortedUnitIDs(units) {
		id, rec := id, units[id]
		g.Go(func() error {
			res := r.process(gctx, st, id, rec, p.UnitTimeout)
			emit(res)
			if res.Err == nil {
				r.log.Debugw("unit_processed", "unit", id, "rows", res.Table.Len(), "duration", res.Duration)
				return nil
			}
			r.log.Errorw("unit_failed", "unit", id, "err", res.Err)
			if p.FailFast {
				return fmt.Errorf("unit %s: %w", id, res.Err)
			}
			return nil
		})
	}
	return g.Wait()
}

func sortedUnitIDs(units map[string]models.UnitRecord) []string {
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
