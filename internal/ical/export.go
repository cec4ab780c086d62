// Package ical renders the cached event collection as an iCalendar feed.
package ical

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"blockcal/internal/model"
)

const prodID = "-//blockcal//calendar mirror//EN"

// Export builds a VCALENDAR with one VEVENT per cached event. UIDs are the
// store-assigned event ids; times are emitted in UTC.
func Export(events []model.Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(prodID)

	now := time.Now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
	}
	return cal.Serialize()
}
