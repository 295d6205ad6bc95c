package models

import (
	"sort"
	"time"
)

// OutlierMask is a set of timestamps flagged in one series.
type OutlierMask map[int64]struct{}

// NewOutlierMask builds a mask from timestamps.
func NewOutlierMask(ts ...time.Time) OutlierMask {
	m := make(OutlierMask, len(ts))
	for _, t := range ts {
		m.Add(t)
	}
	return m
}

// Add flags t.
func (m OutlierMask) Add(t time.Time) { m[t.UnixNano()] = struct{}{} }

// Has reports whether t is flagged.
func (m OutlierMask) Has(t time.Time) bool {
	_, ok := m[t.UnixNano()]
	return ok
}

// Len returns the number of distinct flagged timestamps.
func (m OutlierMask) Len() int { return len(m) }

// Times returns the flagged timestamps in ascending order, in UTC.
func (m OutlierMask) Times() []time.Time {
	out := make([]time.Time, 0, len(m))
	for ns := range m {
		out = append(out, time.Unix(0, ns).UTC())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
