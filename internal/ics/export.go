package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"ganttcal/internal/model"
	"ganttcal/internal/timeline"
)

// ExportCalendar renders entities as an iCalendar feed. Dates go through the
// same fallback policy as the timeline bars, so a subscribed calendar shows
// what the Gantt view shows.
func ExportCalendar(entities []model.Entity, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//ganttcal//timeline//EN")

	for _, e := range entities {
		start, end := timeline.Effective(e.Schedule(), now)

		ev := cal.AddEvent(e.ID + "@ganttcal")
		ev.SetDtStampTime(now)
		ev.SetSummary(e.Name)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetProperty(ical.ComponentPropertyCategories, string(e.Kind))
		ev.SetDescription(fmt.Sprintf("status: %s", e.Status))
	}
	return cal.Serialize()
}
