package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"rms_pipeline/internal/models"
)

// ErrUnitNotFound is returned when a source has no numeric data for a unit.
var ErrUnitNotFound = errors.New("unit not found")

// Source yields the numeric table and alarm log of each unit.
type Source interface {
	Units(ctx context.Context) ([]string, error)
	LoadNumeric(ctx context.Context, unitID string) (models.NumericTable, error)
	LoadEvents(ctx context.Context, unitID string) (models.EventLog, error)
}

// Sink stores a unit's inputs, replacing what was there.
type Sink interface {
	Save(ctx context.Context, unitID string, rec models.UnitRecord) error
}

type Repository struct {
	Source Source
}

// NewRepository serves units from src.
func NewRepository(src Source) *Repository {
	return &Repository{Source: src}
}

// NewCSVRepository reads `<unit>_rms.csv` / `<unit>_alarms.csv` pairs from dir.
func NewCSVRepository(dir string) *Repository {
	return NewRepository(NewCSVFolder(dir))
}

// NewSQLiteRepository reads units from the rms_samples and alarm_events tables.
func NewSQLiteRepository(db *sql.DB) *Repository {
	return NewRepository(NewSQLiteSource(db))
}

// LoadAll loads every unit of src. Units that fail to load are left out of
// the map and their errors are combined into the returned error, so callers
// can still process what loaded.
func LoadAll(ctx context.Context, src Source) (map[string]models.UnitRecord, error) {
	ids, err := src.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return LoadUnits(ctx, src, ids)
}

// LoadUnits loads the given units of src with the same partial semantics as LoadAll.
func LoadUnits(ctx context.Context, src Source, ids []string) (map[string]models.UnitRecord, error) {
	out := make(map[string]models.UnitRecord, len(ids))
	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, multierr.Append(errs, err)
		}
		rms, err := src.LoadNumeric(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unit %s: %w", id, err))
			continue
		}
		alarms, err := src.LoadEvents(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unit %s: %w", id, err))
			continue
		}
		out[id] = models.UnitRecord{RMS: rms, Alarms: alarms}
	}
	return out, errs
}
