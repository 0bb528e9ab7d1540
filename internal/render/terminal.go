package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ganttcal/internal/timeline"
)

const (
	termLabelWidth = 22
	minChartCells  = 10
)

var (
	termHeader = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	termLabel  = lipgloss.NewStyle().Width(termLabelWidth)
	termEmpty  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Terminal renders rows as a text Gantt chart of the given total width.
// Bars are quantized to character cells.
func Terminal(w timeline.Window, rows []Row, width int) string {
	cells := width - termLabelWidth - 1
	if cells < minChartCells {
		cells = minChartCells
	}

	var b strings.Builder
	b.WriteString(termHeader.Render(w.Start.Format("2006-01-02") + " .. " + w.End.AddDate(0, 0, -1).Format("2006-01-02")))
	b.WriteString("\n")

	for _, row := range rows {
		b.WriteString(termLabel.Render(truncate(row.Entity.Name, termLabelWidth-1)))
		b.WriteString(" ")

		start, n := cellSpan(row.Bar, cells)
		if n == 0 {
			b.WriteString(termEmpty.Render(strings.Repeat("·", cells)))
			b.WriteString("\n")
			continue
		}
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(statusColor(row.Entity.Status)))
		b.WriteString(termEmpty.Render(strings.Repeat("·", start)))
		b.WriteString(bar.Render(strings.Repeat("█", n)))
		b.WriteString(termEmpty.Render(strings.Repeat("·", cells-start-n)))
		b.WriteString("\n")
	}
	return b.String()
}

// cellSpan converts bar fractions to a start cell and a length. Visible bars
// always get at least one cell and never run past the last cell.
func cellSpan(bar timeline.Bar, cells int) (start, n int) {
	if !bar.Visible() {
		return 0, 0
	}
	start = int(math.Floor(bar.Offset * float64(cells)))
	if start >= cells {
		start = cells - 1
	}
	n = int(math.Round(bar.Width * float64(cells)))
	if n < 1 {
		n = 1
	}
	if start+n > cells {
		n = cells - start
	}
	return start, n
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
