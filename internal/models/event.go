package models

import (
	"sort"
	"time"
)

// AlarmEvent is one discrete entry of a unit's alarm log.
type AlarmEvent struct {
	OccurredAt time.Time `json:"occurred_at"`
	Raw        string    `json:"raw,omitempty"` // timestamp text as loaded
	Message    string    `json:"message"`
}

// Valid reports whether the event carries a parsed timestamp.
func (e AlarmEvent) Valid() bool { return !e.OccurredAt.IsZero() }

// EventLog is a unit's alarm log. Input order is not guaranteed.
type EventLog []AlarmEvent

// Sorted returns a copy ordered by OccurredAt. Ties keep their input order.
func (l EventLog) Sorted() EventLog {
	out := make(EventLog, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out
}

// FirstInvalid returns the first event without a parsed timestamp.
func (l EventLog) FirstInvalid() (AlarmEvent, bool) {
	for _, e := range l {
		if !e.Valid() {
			return e, true
		}
	}
	return AlarmEvent{}, false
}
