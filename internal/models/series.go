package models

import (
	"math"
	"time"
)

// TimeSeries is one sensor channel: values keyed by a non-decreasing time index.
type TimeSeries struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// NewTimeSeries copies index and values into a new series.
func NewTimeSeries(index []time.Time, values []float64) TimeSeries {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return TimeSeries{Index: idx, Values: copyFloats(values)}
}

// Len returns the number of points.
func (s TimeSeries) Len() int { return len(s.Values) }

// Clone returns a deep copy.
func (s TimeSeries) Clone() TimeSeries {
	out := NewTimeSeries(s.Index, s.Values)
	out.Name = s.Name
	return out
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s TimeSeries) Start() time.Time {
	if len(s.Index) == 0 {
		return time.Time{}
	}
	return s.Index[0]
}

// End returns the last timestamp, or the zero time for an empty series.
func (s TimeSeries) End() time.Time {
	if len(s.Index) == 0 {
		return time.Time{}
	}
	return s.Index[len(s.Index)-1]
}

// MissingCount reports how many values are NaN.
func (s TimeSeries) MissingCount() int {
	n := 0
	for _, v := range s.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Validate checks index/value alignment and index ordering.
func (s TimeSeries) Validate() error {
	if len(s.Index) != len(s.Values) {
		return ErrMisalignedColumn
	}
	return checkSorted(s.Index)
}

// IsSorted reports whether idx is non-decreasing. Equal neighbours are allowed.
func IsSorted(idx []time.Time) bool {
	return checkSorted(idx) == nil
}

func checkSorted(idx []time.Time) error {
	for i := 1; i < len(idx); i++ {
		if idx[i].Before(idx[i-1]) {
			return ErrUnsortedIndex
		}
	}
	return nil
}
