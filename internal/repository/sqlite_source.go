package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"rms_pipeline/internal/models"
)

// tsLayout keeps sub-second precision and sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteSource reads units from the rms_samples (long format, one row per
// channel reading) and alarm_events tables.
type SQLiteSource struct {
	db *sql.DB
}

func NewSQLiteSource(db *sql.DB) *SQLiteSource { return &SQLiteSource{db: db} }

// Units lists every unit that has samples or alarm events.
func (r *SQLiteSource) Units(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT unit_id FROM rms_samples
		UNION
		SELECT unit_id FROM alarm_events
		ORDER BY unit_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoadNumeric pivots the unit's samples into a table. Channels are ordered by
// first appearance; a channel missing at a timestamp reads as NaN. Samples
// are read in insertion order within a timestamp, and a channel repeating
// there opens a new row, so rows sharing a timestamp stay separate.
func (r *SQLiteSource) LoadNumeric(ctx context.Context, unitID string) (models.NumericTable, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, channel, value FROM rms_samples
		WHERE unit_id = ?
		ORDER BY ts ASC, rowid ASC
	`, unitID)
	if err != nil {
		return models.NumericTable{}, err
	}
	defer rows.Close()

	var (
		index    []time.Time
		lastRaw  string
		channels []string
		values   = make(map[string][]float64)
		inRow    = make(map[string]bool)
	)
	for rows.Next() {
		var (
			raw     string
			channel string
			value   sql.NullFloat64
		)
		if err := rows.Scan(&raw, &channel, &value); err != nil {
			return models.NumericTable{}, err
		}
		if len(index) == 0 || raw != lastRaw || inRow[channel] {
			ts, err := models.ParseTimestamp(raw)
			if err != nil {
				return models.NumericTable{}, fmt.Errorf("unit %s: %w", unitID, err)
			}
			index = append(index, ts)
			lastRaw = raw
			clear(inRow)
			for _, c := range channels {
				values[c] = append(values[c], math.NaN())
			}
		}
		inRow[channel] = true
		col, ok := values[channel]
		if !ok {
			col = make([]float64, len(index))
			for i := range col {
				col[i] = math.NaN()
			}
			channels = append(channels, channel)
		}
		if value.Valid {
			col[len(index)-1] = value.Float64
		}
		values[channel] = col
	}
	if err := rows.Err(); err != nil {
		return models.NumericTable{}, err
	}
	if len(index) == 0 {
		return models.NumericTable{}, fmt.Errorf("%w: no samples for %q", ErrUnitNotFound, unitID)
	}

	tbl := models.NewNumericTable(index)
	for _, c := range channels {
		if err := tbl.SetColumn(c, values[c]); err != nil {
			return models.NumericTable{}, err
		}
	}
	return tbl, nil
}

// LoadEvents returns the unit's alarm log ordered by time. Stored timestamps
// that do not parse are kept with a zero OccurredAt.
func (r *SQLiteSource) LoadEvents(ctx context.Context, unitID string) (models.EventLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, message FROM alarm_events
		WHERE unit_id = ?
		ORDER BY ts ASC, rowid ASC
	`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(models.EventLog, 0, 16)
	for rows.Next() {
		var ev models.AlarmEvent
		if err := rows.Scan(&ev.Raw, &ev.Message); err != nil {
			return nil, err
		}
		if ts, err := models.ParseTimestamp(ev.Raw); err == nil {
			ev.OccurredAt = ts
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces the unit's samples and events in one transaction. NaN
// readings are stored as NULL.
func (r *SQLiteSource) Save(ctx context.Context, unitID string, rec models.UnitRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rms_samples WHERE unit_id = ?`, unitID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM alarm_events WHERE unit_id = ?`, unitID); err != nil {
		return err
	}

	cols := rec.RMS.Columns()
	vals := make([][]float64, len(cols))
	for j, c := range cols {
		vals[j], _ = rec.RMS.Values(c)
	}
	for i, ts := range rec.RMS.Index {
		raw := ts.UTC().Format(tsLayout)
		for j, c := range cols {
			var v any
			if !math.IsNaN(vals[j][i]) {
				v = vals[j][i]
			}
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO rms_samples (unit_id, ts, channel, value)
				VALUES (?, ?, ?, ?)
			`, unitID, raw, c, v); err != nil {
				return err
			}
		}
	}

	for _, ev := range rec.Alarms {
		raw := ev.Raw
		if ev.Valid() {
			raw = ev.OccurredAt.UTC().Format(tsLayout)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO alarm_events (unit_id, ts, message)
			VALUES (?, ?, ?)
		`, unitID, raw, ev.Message); err != nil {
			return err
		}
	}

	return tx.Commit()
}
