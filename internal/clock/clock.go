package clock

import (
	"fmt"
	"time"

	appLog "blockcal/internal/log"
	"blockcal/internal/model"
)

// Normalizer converts between the wall-clock local representation used for
// editing and persistence and the absolute representation used internally
// and by the calendar surface.
//
// The zone offset is captured once at construction and held fixed for the
// session. A session that spans a daylight-saving transition will therefore
// mis-normalize by the DST delta; recomputing the offset per instant is the
// known fix if that ever matters.
type Normalizer struct {
	zone   string
	offset time.Duration
}

// NewNormalizer resolves the given IANA zone name (falling back to the
// system local zone when empty or unknown) and captures its current UTC
// offset.
func NewNormalizer(zone string) *Normalizer {
	loc := time.Local
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			appLog.Error("failed to load timezone; falling back to local", err, "zone", zone)
		} else {
			loc = l
		}
	}
	name, secs := time.Now().In(loc).Zone()
	return &Normalizer{
		zone:   name,
		offset: time.Duration(secs) * time.Second,
	}
}

// FixedNormalizer builds a normalizer with an explicit offset. Used by tests
// and anywhere a deterministic offset is needed.
func FixedNormalizer(zone string, offset time.Duration) *Normalizer {
	return &Normalizer{zone: zone, offset: offset}
}

// Zone returns the abbreviated zone name the offset was captured from.
func (n *Normalizer) Zone() string { return n.zone }

// OffsetMillis returns the captured offset in milliseconds, for logging.
func (n *Normalizer) OffsetMillis() int64 { return n.offset.Milliseconds() }

// ToAbsolute converts a wall-clock local instant to the absolute
// representation. Exact inverse of ToLocal for the captured offset.
func (n *Normalizer) ToAbsolute(local time.Time) time.Time {
	return local.Add(n.offset)
}

// ToLocal converts an absolute instant back to the wall-clock local
// representation.
func (n *Normalizer) ToLocal(absolute time.Time) time.Time {
	return absolute.Add(-n.offset)
}

// EncodeRecord renders an event in the store wire shape, with start and end
// as naive local timestamps.
func (n *Normalizer) EncodeRecord(e model.Event) model.EventRecord {
	return model.EventRecord{
		Title: e.Title,
		Start: model.FormatWireTime(n.ToLocal(e.Start)),
		End:   model.FormatWireTime(n.ToLocal(e.End)),
		Hours: e.DurationHours,
	}
}

// DecodeRecord parses a store record into an event with the given id,
// recomputing the derived duration from the parsed range.
func (n *Normalizer) DecodeRecord(id string, r model.EventRecord) (model.Event, error) {
	start, err := model.ParseWireTime(r.Start)
	if err != nil {
		return model.Event{}, fmt.Errorf("parse record start %q: %w", r.Start, err)
	}
	end, err := model.ParseWireTime(r.End)
	if err != nil {
		return model.Event{}, fmt.Errorf("parse record end %q: %w", r.End, err)
	}
	ev := model.Event{ID: id, Title: r.Title}.WithTimes(n.ToAbsolute(start), n.ToAbsolute(end))
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// weekdayLabels is Monday-first, matching the calendar layout.
var weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DateTitle returns the ISO date portion of a local instant. Drafts opened
// from a range selection take this as their default title.
func DateTitle(local time.Time) string {
	return local.Format("2006-01-02")
}

// WeekdayLabel returns the Monday-first weekday label for a local instant.
func WeekdayLabel(local time.Time) string {
	return weekdayLabels[(int(local.Weekday())+6)%7]
}

// WeekNumber computes the 1-based week-of-year bucket for a local instant:
// ceil(((date - startOfYear)/day + 1) / 7). Week 1 covers Jan 1-7 regardless
// of weekday.
func WeekNumber(local time.Time) int {
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	startOfYear := time.Date(local.Year(), 1, 1, 0, 0, 0, 0, local.Location())
	days := int(date.Sub(startOfYear) / (24 * time.Hour))
	return (days + 7) / 7
}
