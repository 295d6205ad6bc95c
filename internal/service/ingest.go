package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
	"rms_pipeline/internal/repository"
)

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

type IngestService struct {
	source repository.Source
	log    *logger.Logger
}

func NewIngestService(source repository.Source, log *logger.Logger) *IngestService {
	return &IngestService{source: source, log: logger.OrNop(log).Component("ingest")}
}

// normalizeToUTC keeps an unset bound unset.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter trims and dedupes unit ids and validates the time range.
func normalizeAndValidateFilter(f UnitFilter) (UnitFilter, error) {
	out := UnitFilter{From: normalizeToUTC(f.From), To: normalizeToUTC(f.To)}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return UnitFilter{}, errInvalidTimeRange
	}

	seen := make(map[string]struct{}, len(f.Units))
	for _, id := range f.Units {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.Units = append(out.Units, id)
	}
	sort.Strings(out.Units)
	return out, nil
}

func (f UnitFilter) contains(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

func (f UnitFilter) bounded() bool { return !f.From.IsZero() || !f.To.IsZero() }

// trim keeps the rows and events inside [From, To]. Events without a parsed
// timestamp are kept so alignment can still report them.
func (f UnitFilter) trim(rec models.UnitRecord) (models.UnitRecord, error) {
	if !f.bounded() {
		return rec, nil
	}

	var keep []int
	index := make([]time.Time, 0, rec.RMS.Len())
	for i, ts := range rec.RMS.Index {
		if f.contains(ts) {
			keep = append(keep, i)
			index = append(index, ts)
		}
	}
	tbl := models.NewNumericTable(index)
	for _, c := range rec.RMS.Columns() {
		src, _ := rec.RMS.Values(c)
		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = src[i]
		}
		if err := tbl.SetColumn(c, vals); err != nil {
			return models.UnitRecord{}, err
		}
	}

	events := make(models.EventLog, 0, len(rec.Alarms))
	for _, ev := range rec.Alarms {
		if !ev.Valid() || f.contains(ev.OccurredAt) {
			events = append(events, ev)
		}
	}
	return models.UnitRecord{RMS: tbl, Alarms: events}, nil
}

// LoadUnits loads the units selected by f. Units that fail to load are left
// out and reported in the combined error.
func (s *IngestService) LoadUnits(ctx context.Context, f UnitFilter) (map[string]models.UnitRecord, error) {
	f, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}

	ids := f.Units
	if len(ids) == 0 {
		if ids, err = s.source.Units(ctx); err != nil {
			return nil, fmt.Errorf("list units: %w", err)
		}
	}

	units, loadErr := repository.LoadUnits(ctx, s.source, ids)
	if loadErr != nil {
		s.log.Warnw("units_load_partial", "loaded", len(units), "requested", len(ids), "err", loadErr)
	}

	var errs error
	for id, rec := range units {
		trimmed, err := f.trim(rec)
		if err != nil {
			delete(units, id)
			errs = multierr.Append(errs, fmt.Errorf("unit %s: %w", id, err))
			continue
		}
		units[id] = trimmed
	}
	return units, multierr.Append(loadErr, errs)
}

// CopyTo loads the units selected by f and saves each into dst. It returns
// how many units were saved.
func (s *IngestService) CopyTo(ctx context.Context, dst repository.Sink, f UnitFilter) (int, error) {
	units, errs := s.LoadUnits(ctx, f)
	if units == nil {
		return 0, errs
	}

	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	saved := 0
	for _, id := range ids {
		if err := dst.Save(ctx, id, units[id]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("save unit %s: %w", id, err))
			continue
		}
		saved++
	}
	s.log.Infow("units_copied", "saved", saved, "total", len(ids))
	return saved, errs
}
