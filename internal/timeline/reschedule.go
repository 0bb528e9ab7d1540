package timeline

import "time"

// DragResult holds the dates an entity gets after being dropped.
type DragResult struct {
	NewStartDate time.Time `json:"new_start_date"`
	NewEndDate   time.Time `json:"new_end_date"`
}

// Duration returns NewEndDate - NewStartDate.
func (r DragResult) Duration() time.Duration {
	return r.NewEndDate.Sub(r.NewStartDate)
}

// Reschedule moves an entity so that it starts at dropFraction of w while
// keeping its original length. Dragging never resizes.
//
// dropFraction is clamped to [0, 1] and read over the continuous extent of
// the window, the same coordinate space Position produces. When either
// original date is missing the entity is given DefaultDuration.
func Reschedule(dropFraction float64, w Window, originalStart, originalEnd *time.Time) DragResult {
	duration := DefaultDuration
	if originalStart != nil && originalEnd != nil {
		duration = originalEnd.Sub(*originalStart)
	}

	f := clamp(dropFraction, 0, 1)
	newStart := w.Start.Add(time.Duration(f * float64(w.Range())))

	return DragResult{
		NewStartDate: newStart,
		NewEndDate:   newStart.Add(duration),
	}
}
