package model

import (
	"errors"
	"math"
	"time"
)

// Event is a single scheduled time block mirrored from the remote store.
// ID is empty for a draft that has not been persisted yet; the store assigns
// it on create and it never changes afterwards.
//
// Invariants: End is never before Start, and DurationHours is always the
// span between them in hours rounded to two decimals. Use WithTimes to
// change the range so the derived duration stays consistent.
type Event struct {
	ID            string
	Title         string
	Start         time.Time
	End           time.Time
	DurationHours float64
}

// WithTimes returns a copy of e with the given range and a recomputed
// DurationHours.
func (e Event) WithTimes(start, end time.Time) Event {
	e.Start = start
	e.End = end
	e.DurationHours = RoundHours(end.Sub(start))
	return e
}

// Validate reports whether the event satisfies its range invariant.
func (e Event) Validate() error {
	if e.End.Before(e.Start) {
		return errors.New("event end is before start")
	}
	return nil
}

// RoundHours converts a duration to hours rounded to two decimal places.
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// EventRecord is the wire shape exchanged with the event store. Start and
// End are naive local timestamps (no zone designator), matching what the
// store already holds.
type EventRecord struct {
	Title string  `json:"title"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
}

// WireTimeLayout is the naive local timestamp layout used by the store.
const WireTimeLayout = "2006-01-02T15:04:05"

// FormatWireTime renders a wall-clock instant in the store's naive layout.
func FormatWireTime(t time.Time) string {
	return t.Format(WireTimeLayout)
}

// ParseWireTime parses a store timestamp. Zone-qualified RFC 3339 values are
// accepted as a fallback for stores that were populated by other clients.
func ParseWireTime(s string) (time.Time, error) {
	if t, err := time.Parse(WireTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// DayGroup is one calendar date inside a week of the aggregation view.
// Date is the ISO date string the events of that day share as their title.
type DayGroup struct {
	Date            string  `json:"date"`
	Weekday         string  `json:"weekday"`
	Events          []Event `json:"-"`
	EventCount      int     `json:"event_count"`
	DailyTotalHours float64 `json:"daily_total_hours"`
}

// WeekGroup is one week of the aggregation view, ordered by week number.
type WeekGroup struct {
	Week             int        `json:"week"`
	Days             []DayGroup `json:"days"`
	WeeklyTotalHours float64    `json:"weekly_total_hours"`
}
