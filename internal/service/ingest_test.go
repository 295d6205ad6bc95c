package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rms_pipeline/internal/models"
	"rms_pipeline/internal/repository"
)

// fakeSource serves units from memory and records which ids were loaded.
type fakeSource struct {
	units    map[string]models.UnitRecord
	unitsErr error
	failing  map[string]error

	mu     sync.Mutex
	loaded []string
}

func (f *fakeSource) Units(ctx context.Context) ([]string, error) {
	if f.unitsErr != nil {
		return nil, f.unitsErr
	}
	ids := make([]string, 0, len(f.units))
	for id := range f.units {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeSource) LoadNumeric(ctx context.Context, unitID string) (models.NumericTable, error) {
	f.mu.Lock()
	f.loaded = append(f.loaded, unitID)
	f.mu.Unlock()
	if err := f.failing[unitID]; err != nil {
		return models.NumericTable{}, err
	}
	rec, ok := f.units[unitID]
	if !ok {
		return models.NumericTable{}, repository.ErrUnitNotFound
	}
	return rec.RMS, nil
}

func (f *fakeSource) LoadEvents(ctx context.Context, unitID string) (models.EventLog, error) {
	return f.units[unitID].Alarms, nil
}

type fakeSink struct {
	saved map[string]models.UnitRecord
	fail  string
}

func (f *fakeSink) Save(ctx context.Context, unitID string, rec models.UnitRecord) error {
	if unitID == f.fail {
		return errors.New("disk full")
	}
	if f.saved == nil {
		f.saved = make(map[string]models.UnitRecord)
	}
	f.saved[unitID] = rec
	return nil
}

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	plus3 := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2024, 5, 6, 11, 0, 0, 0, plus3)
	to := time.Date(2024, 5, 6, 12, 0, 0, 0, plus3)

	got, err := normalizeAndValidateFilter(UnitFilter{
		Units: []string{" b ", "a", "", "b"},
		From:  from,
		To:    to,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Units)
	assert.Equal(t, time.UTC, got.From.Location())
	assert.True(t, got.From.Equal(from))

	_, err = normalizeAndValidateFilter(UnitFilter{From: to, To: from})
	assert.ErrorIs(t, err, errInvalidTimeRange)

	got, err = normalizeAndValidateFilter(UnitFilter{})
	require.NoError(t, err)
	assert.True(t, got.From.IsZero())
	assert.Empty(t, got.Units)
}

func TestUnitFilter_Trim(t *testing.T) {
	t.Parallel()

	rec := unitRecord(t, models.EventLog{
		{OccurredAt: t0.Add(5 * time.Minute), Message: "warning: early"},
		{OccurredAt: t0.Add(35 * time.Minute), Message: "warning: inside"},
		{Raw: "??", Message: "error: unparsed"},
	})

	f := UnitFilter{From: t0.Add(30 * time.Minute), To: t0.Add(60 * time.Minute)}
	got, err := f.trim(rec)
	require.NoError(t, err)

	require.Equal(t, 4, got.RMS.Len())
	assert.Equal(t, t0.Add(30*time.Minute), got.RMS.Index[0])
	assert.Equal(t, t0.Add(60*time.Minute), got.RMS.Index[3])
	assert.Equal(t, rec.RMS.Columns(), got.RMS.Columns())
	src, _ := rec.RMS.Values("rpm")
	trimmed, _ := got.RMS.Values("rpm")
	assert.Equal(t, src[3:7], trimmed)

	require.Len(t, got.Alarms, 2)
	assert.Equal(t, "warning: inside", got.Alarms[0].Message)
	assert.False(t, got.Alarms[1].Valid())

	same, err := UnitFilter{}.trim(rec)
	require.NoError(t, err)
	assert.Equal(t, rec.RMS.Len(), same.RMS.Len())
}

func TestIngestService_LoadUnits(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		units: map[string]models.UnitRecord{
			"a": unitRecord(t, nil),
			"b": unitRecord(t, nil),
			"c": unitRecord(t, nil),
		},
		failing: map[string]error{"c": errors.New("corrupt file")},
	}
	svc := NewIngestService(src, nil)

	units, err := svc.LoadUnits(context.Background(), UnitFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit c")
	assert.Len(t, units, 2)

	units, err = svc.LoadUnits(context.Background(), UnitFilter{Units: []string{"b"}, To: t0.Add(20 * time.Minute)})
	require.NoError(t, err)
	require.Contains(t, units, "b")
	assert.Equal(t, 3, units["b"].RMS.Len())
}

func TestIngestService_LoadUnits_Errors(t *testing.T) {
	t.Parallel()

	svc := NewIngestService(&fakeSource{unitsErr: errors.New("dir gone")}, nil)
	_, err := svc.LoadUnits(context.Background(), UnitFilter{})
	assert.ErrorContains(t, err, "list units")

	_, err = svc.LoadUnits(context.Background(), UnitFilter{From: t0.Add(time.Hour), To: t0})
	assert.ErrorIs(t, err, errInvalidTimeRange)

	src := &fakeSource{units: map[string]models.UnitRecord{}}
	units, err := NewIngestService(src, nil).LoadUnits(context.Background(), UnitFilter{Units: []string{"ghost"}})
	assert.ErrorIs(t, err, repository.ErrUnitNotFound)
	assert.Empty(t, units)
}

func TestIngestService_CopyTo(t *testing.T) {
	t.Parallel()

	src := &fakeSource{units: map[string]models.UnitRecord{}}
	for i := 0; i < 3; i++ {
		src.units[fmt.Sprintf("u%d", i)] = unitRecord(t, nil)
	}
	sink := &fakeSink{fail: "u1"}

	saved, err := NewIngestService(src, nil).CopyTo(context.Background(), sink, UnitFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save unit u1")
	assert.Equal(t, 2, saved)
	assert.Contains(t, sink.saved, "u0")
	assert.Contains(t, sink.saved, "u2")
}
