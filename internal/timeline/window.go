// Package timeline implements the layout math behind the Gantt view: it
// resolves a view mode into a calendar window, maps entity schedules onto
// fractional bar geometry inside that window and turns a drop position back
// into new dates.
//
// Every function here is pure. Callers pass "now" explicitly (see Clock) so
// results are reproducible.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the span of the viewing window.
type Mode string

const (
	ModeWeek    Mode = "week"
	ModeMonth   Mode = "month"
	ModeQuarter Mode = "quarter"
)

// ParseMode converts user input (query string, flag, config) into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWeek:
		return ModeWeek, nil
	case ModeMonth:
		return ModeMonth, nil
	case ModeQuarter:
		return ModeQuarter, nil
	default:
		return "", fmt.Errorf("timeline: unknown view mode %q", s)
	}
}

// Window is the half-open interval [Start, End) shown on the timeline.
// DayCount is the number of calendar days it spans.
type Window struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	DayCount int       `json:"day_count"`
}

// Range returns End - Start. Resolve never produces an empty window.
func (w Window) Range() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the midnight of every day bucket in the window, in order.
func (w Window) Days() []time.Time {
	out := make([]time.Time, 0, w.DayCount)
	for i := 0; i < w.DayCount; i++ {
		out = append(out, w.Start.AddDate(0, 0, i))
	}
	return out
}

// Resolve computes the window of the given mode that contains ref. Weeks
// start on Sunday. Unknown modes resolve as a month.
func Resolve(mode Mode, ref time.Time) Window {
	return ResolveWeekStart(mode, ref, time.Sunday)
}

// ResolveWeekStart is Resolve with a configurable first day of the week.
// weekStart only affects ModeWeek.
func ResolveWeekStart(mode Mode, ref time.Time, weekStart time.Weekday) Window {
	loc := ref.Location()
	y, m, d := ref.Date()

	var start, end time.Time
	switch mode {
	case ModeWeek:
		back := (int(ref.Weekday()) - int(weekStart) + 7) % 7
		start = time.Date(y, m, d-back, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 7)
	case ModeQuarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		start = time.Date(y, first, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 3, 0)
	default:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	}

	return Window{
		Start:    start,
		End:      end,
		DayCount: wholeDaysBetween(start, end),
	}
}

// Shift returns the window n periods after w (n < 0 moves backwards).
// The week start of w is preserved.
func Shift(mode Mode, w Window, n int) Window {
	var ref time.Time
	switch mode {
	case ModeWeek:
		ref = w.Start.AddDate(0, 0, 7*n)
	case ModeQuarter:
		ref = w.Start.AddDate(0, 3*n, 0)
	default:
		ref = w.Start.AddDate(0, n, 0)
	}
	return ResolveWeekStart(mode, ref, w.Start.Weekday())
}

// wholeDaysBetween counts calendar days between two dates. The dates are
// projected onto UTC first so DST transitions in the window's zone do not
// produce 23 or 25 hour days.
func wholeDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}
