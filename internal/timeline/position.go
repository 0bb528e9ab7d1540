package timeline

import (
	"math"
	"time"
)

const (
	// DefaultDuration is assumed for entities without a deadline and for
	// drags of entities without stored dates.
	DefaultDuration = 7 * 24 * time.Hour

	// MinWidthFraction keeps zero-length bars visible and clickable.
	MinWidthFraction = 0.05
)

// Schedule is the scheduling view of a project or task. Both dates are
// optional.
type Schedule struct {
	StartDate *time.Time
	Deadline  *time.Time
}

// Bar is the horizontal placement of a Schedule within a Window, as
// fractions of the window's extent.
type Bar struct {
	Offset float64 `json:"offset"`
	Width  float64 `json:"width"`

	EffectiveStart time.Time `json:"effective_start"`
	EffectiveEnd   time.Time `json:"effective_end"`
}

// Visible reports whether the bar occupies any part of the window. Bars of
// entities starting at or after the window end are pinned to the right edge
// with zero width.
func (b Bar) Visible() bool {
	return b.Width > 0
}

// Effective applies the fallback policy for missing dates: a missing start
// is "now", a missing deadline is start + DefaultDuration.
func Effective(s Schedule, now time.Time) (start, end time.Time) {
	start = now
	if s.StartDate != nil {
		start = *s.StartDate
	}
	end = start.Add(DefaultDuration)
	if s.Deadline != nil {
		end = *s.Deadline
	}
	return start, end
}

// Position computes the bar geometry of s inside w.
//
// Entities starting before the window are pinned to offset 0. The width is
// at least MinWidthFraction and never reaches past the right edge, so
// Offset+Width <= 1 always holds. Inverted ranges (deadline before start)
// are rendered as-is and end up at the minimum width.
func Position(s Schedule, w Window, now time.Time) Bar {
	start, end := Effective(s, now)
	rng := float64(w.Range())

	offset := clamp(float64(start.Sub(w.Start))/rng, 0, 1)
	raw := float64(end.Sub(start)) / rng
	width := clamp(math.Min(1-offset, math.Max(MinWidthFraction, raw)), 0, 1)

	return Bar{
		Offset:         offset,
		Width:          width,
		EffectiveStart: start,
		EffectiveEnd:   end,
	}
}

// FractionAt maps t onto the window's coordinate space without clamping:
// values below 0 or above 1 lie outside the window.
func FractionAt(w Window, t time.Time) float64 {
	return float64(t.Sub(w.Start)) / float64(w.Range())
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
