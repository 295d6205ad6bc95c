package handlers

import (
	"fmt"
	"math"
	"sort"
	"time"

	"rms_pipeline/internal/models"
	"rms_pipeline/internal/service"
)

// UnitPayload is one unit's raw input. Column values may be null for missing
// readings; every column must be as long as timestamps.
type UnitPayload struct {
	Timestamps []string              `json:"timestamps" example:"2024-05-06T08:00:00Z"`
	Columns    map[string][]*float64 `json:"columns"`
	Alarms     []AlarmPayload        `json:"alarms,omitempty"`
}

// AlarmPayload is one alarm log entry.
type AlarmPayload struct {
	Timestamp string `json:"timestamp" example:"2024-05-06T08:05:00Z"`
	Message   string `json:"message" example:"warning: overheat"`
}

// ProcessRequest is the body of POST /api/v1/process and of the WebSocket
// request message. Omitted tuning fields fall back to the server config.
type ProcessRequest struct {
	Units       map[string]UnitPayload `json:"units" binding:"required"`
	Sensitivity *float64               `json:"sensitivity,omitempty" example:"12"`
	WindowHours *float64               `json:"window_hours,omitempty" example:"1"`
	FailFast    *bool                  `json:"fail_fast,omitempty"`
}

// TableResponse is an enriched table. Non-finite values are null.
type TableResponse struct {
	Timestamps []string                 `json:"timestamps"`
	Order      []string                 `json:"column_order"`
	Columns    map[string][]*float64    `json:"columns"`
	Flags      []models.DataQualityFlag `json:"flags,omitempty"`
}

// RunResponse summarises a pipeline run.
type RunResponse struct {
	RunID      string                   `json:"run_id"`
	DurationMS int64                    `json:"duration_ms"`
	Results    map[string]TableResponse `json:"results"`
	Errors     map[string]string        `json:"errors"`
	Warnings   map[string][]string      `json:"warnings"`
	LoadErrors []string                 `json:"load_errors,omitempty"`
}

// UnitResponse is one streamed unit result.
type UnitResponse struct {
	UnitID     string         `json:"unit_id"`
	Table      *TableResponse `json:"table,omitempty"`
	Error      string         `json:"error,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

func toRecord(p UnitPayload) (models.UnitRecord, error) {
	index := make([]time.Time, len(p.Timestamps))
	for i, s := range p.Timestamps {
		ts, err := models.ParseTimestamp(s)
		if err != nil {
			return models.UnitRecord{}, fmt.Errorf("timestamps[%d]: %w", i, err)
		}
		index[i] = ts
	}

	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	tbl := models.NewNumericTable(index)
	for _, name := range names {
		raw := p.Columns[name]
		if len(raw) != len(index) {
			return models.UnitRecord{}, fmt.Errorf("%w: column %q has %d values for %d timestamps",
				models.ErrMisalignedColumn, name, len(raw), len(index))
		}
		vals := make([]float64, len(raw))
		for i, v := range raw {
			if v == nil {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = *v
		}
		if err := tbl.SetColumn(name, vals); err != nil {
			return models.UnitRecord{}, err
		}
	}

	events := make(models.EventLog, 0, len(p.Alarms))
	for _, a := range p.Alarms {
		ev := models.AlarmEvent{Raw: a.Timestamp, Message: a.Message}
		if ts, err := models.ParseTimestamp(a.Timestamp); err == nil {
			ev.OccurredAt = ts
		}
		events = append(events, ev)
	}
	return models.UnitRecord{RMS: tbl, Alarms: events}, nil
}

// toRecords converts every payload it can. Units that fail conversion are
// returned in invalid, keyed by unit id, and left out of records.
func toRecords(units map[string]UnitPayload) (records map[string]models.UnitRecord, invalid map[string]error) {
	records = make(map[string]models.UnitRecord, len(units))
	invalid = make(map[string]error)
	for id, p := range units {
		rec, err := toRecord(p)
		if err != nil {
			invalid[id] = err
			continue
		}
		records[id] = rec
	}
	return records, invalid
}

// firstInvalid reports the invalid unit with the smallest id, or nil.
func firstInvalid(invalid map[string]error) error {
	ids := make([]string, 0, len(invalid))
	for id := range invalid {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return fmt.Errorf("unit %s: %w", ids[0], invalid[ids[0]])
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toTableResponse(t *models.EnrichedTable) TableResponse {
	resp := TableResponse{
		Timestamps: make([]string, len(t.Index)),
		Order:      t.Columns(),
		Columns:    make(map[string][]*float64, len(t.Columns())),
		Flags:      t.Flags,
	}
	for i, ts := range t.Index {
		resp.Timestamps[i] = ts.UTC().Format(time.RFC3339Nano)
	}
	for _, name := range resp.Order {
		vals, _ := t.Values(name)
		col := make([]*float64, len(vals))
		for i, v := range vals {
			col[i] = finiteOrNil(v)
		}
		resp.Columns[name] = col
	}
	return resp
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func toRunResponse(r service.RunReport) RunResponse {
	resp := RunResponse{
		RunID:      r.RunID,
		DurationMS: r.Duration.Milliseconds(),
		Results:    make(map[string]TableResponse, len(r.Results)),
		Errors:     make(map[string]string, len(r.Errors)),
		Warnings:   make(map[string][]string, len(r.Warnings)),
	}
	for id, t := range r.Results {
		resp.Results[id] = toTableResponse(t)
	}
	for id, err := range r.Errors {
		resp.Errors[id] = err.Error()
	}
	for id, ws := range r.Warnings {
		resp.Warnings[id] = errorStrings(ws)
	}
	return resp
}

func toUnitResponse(res service.UnitResult) UnitResponse {
	out := UnitResponse{
		UnitID:     res.UnitID,
		Warnings:   errorStrings(res.Warnings),
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}
	tbl := toTableResponse(res.Table)
	out.Table = &tbl
	return out
}
