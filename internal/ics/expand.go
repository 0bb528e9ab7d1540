package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "ganttcal/internal/log"
	"ganttcal/internal/model"
	"ganttcal/internal/timeline"
)

// maxOccurrencesPerEvent caps runaway rules such as FREQ=MINUTELY.
const maxOccurrencesPerEvent = 500

// ExpandMilestones turns parsed feed events into milestone entities whose
// span intersects w. Recurring events are expanded with their EXDATEs and
// RECURRENCE-ID overrides applied. Dates are converted to loc (nil means
// the window's location).
//
// The second return value lists UIDs whose expansion hit the cap.
func ExpandMilestones(events []ParsedEvent, w timeline.Window, loc *time.Location) ([]model.Entity, []string) {
	if loc == nil {
		loc = w.Start.Location()
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	var order []string
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	var out []model.Entity
	var truncated []string
	for _, uid := range order {
		capped := false
		for _, ev := range bases[uid] {
			occ, hit := expandEvent(ev, overrides[uid], w, loc)
			capped = capped || hit
			out = append(out, occ...)
		}
		if capped {
			truncated = append(truncated, uid)
			appLog.Warn("ics expansion truncated", "uid", uid, "cap", maxOccurrencesPerEvent)
		}
	}
	return out, truncated
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, w timeline.Window, loc *time.Location) ([]model.Entity, bool) {
	if ev.RawRRule == "" {
		if !intersects(ev.Start, ev.End, w) {
			return nil, false
		}
		return []model.Entity{milestone(ev, ev.Start, ev.End, loc)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Occurrences that started before the window but still run into it
	// count too, so widen the lower bound by the event length.
	length := ev.End.Sub(ev.Start)
	from := w.Start.Add(-length).In(ev.Start.Location())
	to := w.End.In(ev.Start.Location())
	starts := set.Between(from, to, true)

	hit := false
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
		hit = true
	}

	var out []model.Entity
	for _, s := range starts {
		occ, start, end := ev, s, s.Add(length)
		if o, ok := findOverride(overrides, s); ok {
			occ, start, end = o, o.Start, o.End
		}
		if !intersects(start, end, w) {
			continue
		}
		out = append(out, milestone(occ, start, end, loc))
	}
	return out, hit
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

// intersects reports whether [start, end] touches [w.Start, w.End).
func intersects(start, end time.Time, w timeline.Window) bool {
	return start.Before(w.End) && !end.Before(w.Start)
}

func milestone(ev ParsedEvent, start, end time.Time, loc *time.Location) model.Entity {
	start, end = start.In(loc), end.In(loc)
	return model.Entity{
		ID:        ev.Source.ID + ":" + ev.UID + ":" + start.Format(time.RFC3339),
		Kind:      model.KindMilestone,
		Name:      ev.Summary,
		Status:    model.StatusUpcoming,
		StartDate: &start,
		Deadline:  &end,
		SourceID:  ev.Source.ID,
	}
}
