// Package render draws the timeline as an SVG Gantt strip for the web view
// and as a coloured text chart for the terminal.
package render

import (
	"sort"
	"time"

	"ganttcal/internal/model"
	"ganttcal/internal/timeline"
)

// Row is one entity laid out in a window.
type Row struct {
	Entity model.Entity `json:"entity"`
	Bar    timeline.Bar `json:"bar"`
}

// BuildRows positions every entity in w and orders the rows by effective
// start, then by name.
func BuildRows(entities []model.Entity, w timeline.Window, now time.Time) []Row {
	rows := make([]Row, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, Row{Entity: e, Bar: timeline.Position(e.Schedule(), w, now)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Bar.EffectiveStart, rows[j].Bar.EffectiveStart
		if !a.Equal(b) {
			return a.Before(b)
		}
		return rows[i].Entity.Name < rows[j].Entity.Name
	})
	return rows
}

// statusColor maps a status to the bar fill used by both renderers.
func statusColor(s model.Status) string {
	switch s {
	case model.StatusCompleted, model.StatusDone:
		return "#4caf50"
	case model.StatusActive, model.StatusInProgress:
		return "#2196f3"
	case model.StatusReview:
		return "#9c27b0"
	case model.StatusOnHold, model.StatusBlocked:
		return "#f44336"
	case model.StatusUpcoming:
		return "#ff9800"
	default:
		return "#9e9e9e"
	}
}
