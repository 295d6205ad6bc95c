package models

import (
	"fmt"
	"time"
)

// NumericTable holds every channel of one unit on a shared time index.
// Column order is preserved as loaded; derived columns are appended.
type NumericTable struct {
	Index   []time.Time
	columns []string
	values  map[string][]float64
}

// NewNumericTable creates an empty table on a copy of index.
func NewNumericTable(index []time.Time) NumericTable {
	idx := make([]time.Time, len(index))
	for i, t := range index {
		idx[i] = toUTC(t)
	}
	return NumericTable{
		Index:  idx,
		values: make(map[string][]float64),
	}
}

// Len returns the row count.
func (t NumericTable) Len() int { return len(t.Index) }

// Columns returns the column names in order.
func (t NumericTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether name exists.
func (t NumericTable) HasColumn(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Values returns the backing slice of a column. Callers must not resize it.
func (t NumericTable) Values(name string) ([]float64, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Column returns a copy of the named column as a TimeSeries.
func (t NumericTable) Column(name string) (TimeSeries, bool) {
	v, ok := t.values[name]
	if !ok {
		return TimeSeries{}, false
	}
	s := NewTimeSeries(t.Index, v)
	s.Name = name
	return s, true
}

// SetColumn adds or replaces a column. The values are copied.
func (t *NumericTable) SetColumn(name string, values []float64) error {
	if len(values) != len(t.Index) {
		return fmt.Errorf("%w: column %q has %d values, index has %d",
			ErrMisalignedColumn, name, len(values), len(t.Index))
	}
	if t.values == nil {
		t.values = make(map[string][]float64)
	}
	if _, ok := t.values[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.values[name] = copyFloats(values)
	return nil
}

// Clone returns a deep copy.
func (t NumericTable) Clone() NumericTable {
	out := NewNumericTable(t.Index)
	for _, name := range t.columns {
		out.columns = append(out.columns, name)
		out.values[name] = copyFloats(t.values[name])
	}
	return out
}

// Validate checks that every column is aligned with the index and that the
// index is non-decreasing.
func (t NumericTable) Validate() error {
	for _, name := range t.columns {
		if len(t.values[name]) != len(t.Index) {
			return fmt.Errorf("%w: column %q", ErrMisalignedColumn, name)
		}
	}
	return checkSorted(t.Index)
}

func copyFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
