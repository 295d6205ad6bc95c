package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

const (
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// ParseTimestamp accepts ISO 8601 (RFC3339 and friends), 'YYYY-MM-DD HH:MM:SS'
// and 'YYYY-MM-DD'. Zone-less values are read as UTC. The result is always UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseableTimestamp)
	}
	if t, err := iso8601.ParseString(s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
}

// toUTC leaves the zero time alone.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
