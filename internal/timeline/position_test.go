package timeline

import (
	"math"
	"testing"
	"time"
)

const eps = 1e-9

func ptr(t time.Time) *time.Time { return &t }

func TestPosition_EndToEndScenario(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	s := Schedule{
		StartDate: ptr(date(2025, time.January, 10)),
		Deadline:  ptr(date(2025, time.January, 20)),
	}
	b := Position(s, w, date(2025, time.January, 15))

	if math.Abs(b.Offset-9.0/31.0) > eps {
		t.Fatalf("offset: got %v, want %v", b.Offset, 9.0/31.0)
	}
	if math.Abs(b.Width-10.0/31.0) > eps {
		t.Fatalf("width: got %v, want %v", b.Width, 10.0/31.0)
	}

	r := Reschedule(0.5, w, s.StartDate, s.Deadline)
	wantStart := time.Date(2025, time.January, 16, 12, 0, 0, 0, time.UTC)
	if !r.NewStartDate.Equal(wantStart) {
		t.Fatalf("new start: got %v, want %v", r.NewStartDate, wantStart)
	}
	if !r.NewEndDate.Equal(wantStart.AddDate(0, 0, 10)) {
		t.Fatalf("new end: got %v, want %v", r.NewEndDate, wantStart.AddDate(0, 0, 10))
	}
}

func TestPosition_ZeroDurationHasMinimumWidth(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	d := date(2025, time.January, 10)
	b := Position(Schedule{StartDate: &d, Deadline: &d}, w, d)
	if b.Width < MinWidthFraction {
		t.Fatalf("width: got %v, want >= %v", b.Width, MinWidthFraction)
	}
}

func TestPosition_MissingDatesUseFallbacks(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	now := date(2025, time.January, 5)

	b := Position(Schedule{}, w, now)
	if math.Abs(b.Offset-4.0/31.0) > eps {
		t.Fatalf("missing start: offset %v, want %v", b.Offset, 4.0/31.0)
	}
	if math.Abs(b.Width-7.0/31.0) > eps {
		t.Fatalf("missing deadline: width %v, want %v", b.Width, 7.0/31.0)
	}
	if !b.EffectiveEnd.Equal(now.Add(DefaultDuration)) {
		t.Fatalf("effective end: got %v, want %v", b.EffectiveEnd, now.Add(DefaultDuration))
	}
}

func TestPosition_StartBeforeWindowPinnedLeft(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	b := Position(Schedule{
		StartDate: ptr(date(2024, time.December, 20)),
		Deadline:  ptr(date(2025, time.January, 5)),
	}, w, date(2025, time.January, 15))
	if b.Offset != 0 {
		t.Fatalf("offset: got %v, want 0", b.Offset)
	}
	// Raw width counts the truncated history too.
	if math.Abs(b.Width-16.0/31.0) > eps {
		t.Fatalf("width: got %v, want %v", b.Width, 16.0/31.0)
	}
}

func TestPosition_ClippedAtRightEdge(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	b := Position(Schedule{
		StartDate: ptr(date(2025, time.January, 25)),
		Deadline:  ptr(date(2025, time.March, 1)),
	}, w, date(2025, time.January, 15))
	if math.Abs(b.Offset+b.Width-1) > eps {
		t.Fatalf("bar should end at right edge: offset %v + width %v", b.Offset, b.Width)
	}
}

func TestPosition_AfterWindowInvisible(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	b := Position(Schedule{StartDate: ptr(date(2025, time.March, 1))}, w, date(2025, time.January, 15))
	if b.Offset != 1 || b.Width != 0 || b.Visible() {
		t.Fatalf("entity after window: got %+v, want offset 1 width 0", b)
	}
}

func TestPosition_InvertedRangeRenderedAtMinimum(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	b := Position(Schedule{
		StartDate: ptr(date(2025, time.January, 20)),
		Deadline:  ptr(date(2025, time.January, 10)),
	}, w, date(2025, time.January, 15))
	if b.Width != MinWidthFraction {
		t.Fatalf("inverted range: width %v, want %v", b.Width, MinWidthFraction)
	}
}

func TestPosition_GeometryBounds(t *testing.T) {
	now := date(2025, time.January, 15)
	var dates []*time.Time
	dates = append(dates, nil)
	for d := date(2024, time.September, 1); d.Before(date(2025, time.June, 1)); d = d.AddDate(0, 0, 11) {
		dates = append(dates, ptr(d))
	}
	dates = append(dates, ptr(date(1, time.January, 1)), ptr(date(9999, time.December, 31)))

	for _, mode := range []Mode{ModeWeek, ModeMonth, ModeQuarter} {
		w := Resolve(mode, now)
		for _, s := range dates {
			for _, e := range dates {
				sch := Schedule{StartDate: s, Deadline: e}
				b := Position(sch, w, now)
				if b.Offset < 0 || b.Offset > 1 {
					t.Fatalf("%s %+v: offset %v out of [0,1]", mode, sch, b.Offset)
				}
				if b.Width < 0 || b.Width > 1 {
					t.Fatalf("%s %+v: width %v out of [0,1]", mode, sch, b.Width)
				}
				if b.Offset+b.Width > 1+eps {
					t.Fatalf("%s %+v: offset+width = %v > 1", mode, sch, b.Offset+b.Width)
				}
				start, _ := Effective(sch, now)
				if start.Before(w.End) && b.Width <= 0 {
					t.Fatalf("%s %+v: entity starting inside window has zero width", mode, sch)
				}
			}
		}
	}
}

func TestFractionAt(t *testing.T) {
	w := Resolve(ModeMonth, date(2025, time.January, 15))
	if got := FractionAt(w, w.Start); got != 0 {
		t.Fatalf("start: got %v, want 0", got)
	}
	if got := FractionAt(w, w.End); got != 1 {
		t.Fatalf("end: got %v, want 1", got)
	}
	if got := FractionAt(w, date(2024, time.December, 1)); got >= 0 {
		t.Fatalf("before window: got %v, want negative", got)
	}
}

func TestClocks(t *testing.T) {
	at := date(2025, time.January, 28)
	if got := (FixedClock{T: at}).Now(); !got.Equal(at) {
		t.Fatalf("FixedClock: got %v, want %v", got, at)
	}
	if got := ClockFunc(func() time.Time { return at }).Now(); !got.Equal(at) {
		t.Fatalf("ClockFunc: got %v, want %v", got, at)
	}
}
