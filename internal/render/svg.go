package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ganttcal/internal/model"
	"ganttcal/internal/timeline"
)

// SVGOptions controls the geometry of the SVG chart. Zero values fall back
// to the defaults below.
type SVGOptions struct {
	Width      int
	RowHeight  int
	LabelWidth int
	Title      string
}

const (
	defaultSVGWidth   = 1200
	defaultRowHeight  = 28
	defaultLabelWidth = 260
	headerHeight      = 40
	fontFamily        = "Helvetica, Arial, sans-serif"
)

func (o *SVGOptions) normalize() {
	if o.Width <= 0 {
		o.Width = defaultSVGWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = defaultRowHeight
	}
	if o.LabelWidth <= 0 || o.LabelWidth >= o.Width {
		o.LabelWidth = defaultLabelWidth
		if o.LabelWidth >= o.Width {
			o.LabelWidth = o.Width / 4
		}
	}
}

// SVG renders rows as a Gantt strip over w. The chart has a day grid
// header, one bar per visible row and a marker at now when now falls
// inside the window.
func SVG(w timeline.Window, rows []Row, now time.Time, opts SVGOptions) string {
	opts.normalize()

	chartX := opts.LabelWidth
	chartW := opts.Width - opts.LabelWidth
	height := headerHeight + len(rows)*opts.RowHeight + 10

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, opts.Width, height))

	if opts.Title != "" {
		svg.WriteString(fmt.Sprintf(`<text x="8" y="16" font-family="%s" font-size="14" font-weight="bold" fill="#212121">%s</text>`+"\n",
			fontFamily, escapeXML(opts.Title)))
	}

	drawDayGrid(&svg, w, chartX, chartW, height)

	for i, row := range rows {
		y := headerHeight + i*opts.RowHeight
		drawRow(&svg, row, now, y, chartX, chartW, opts)
	}

	if w.Contains(now) {
		x := chartX + int(timeline.FractionAt(w, now)*float64(chartW))
		svg.WriteString(fmt.Sprintf(`<line class="today" x1="%d" y1="%d" x2="%d" y2="%d" stroke="#e53935" stroke-width="2"/>`+"\n",
			x, headerHeight-6, x, height))
	}

	svg.WriteString("</svg>")
	return svg.String()
}

func drawDayGrid(svg *strings.Builder, w timeline.Window, chartX, chartW, height int) {
	days := w.Days()
	if len(days) == 0 {
		return
	}
	cell := float64(chartW) / float64(len(days))
	// Label every day for week views, otherwise only Mondays and the first.
	every := len(days) <= 14
	for i, d := range days {
		x := chartX + int(float64(i)*cell)
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#eeeeee" stroke-width="1"/>`+"\n",
			x, headerHeight-4, x, height))
		if every || i == 0 || d.Weekday() == time.Monday {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-family="%s" font-size="10" fill="#616161">%s</text>`+"\n",
				x+2, headerHeight-10, fontFamily, d.Format("Jan 2")))
		}
	}
}

func drawRow(svg *strings.Builder, row Row, now time.Time, y, chartX, chartW int, opts SVGOptions) {
	e := row.Entity
	svg.WriteString(fmt.Sprintf(`<text x="8" y="%d" font-family="%s" font-size="12" fill="#212121">%s</text>`+"\n",
		y+opts.RowHeight/2+4, fontFamily, escapeXML(rowLabel(e, now))))

	if !row.Bar.Visible() {
		return
	}
	x := chartX + int(row.Bar.Offset*float64(chartW))
	bw := int(row.Bar.Width * float64(chartW))
	if bw < 1 {
		bw = 1
	}
	svg.WriteString(fmt.Sprintf(`<rect data-id="%s" x="%d" y="%d" width="%d" height="%d" rx="3" fill="%s"><title>%s</title></rect>`+"\n",
		escapeXML(e.ID), x, y+4, bw, opts.RowHeight-8, statusColor(e.Status), escapeXML(barTitle(row))))

	if e.Progress != nil && *e.Progress > 0 {
		pw := int(float64(bw) * min(*e.Progress, 100) / 100)
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="4" fill="#000000" fill-opacity="0.25"/>`+"\n",
			x, y+opts.RowHeight-8, pw))
	}
}

// rowLabel is the left-hand caption: name plus a relative deadline hint.
func rowLabel(e model.Entity, now time.Time) string {
	label := e.Name
	if e.Deadline != nil && e.Kind != model.KindMilestone {
		label += " (due " + humanize.RelTime(*e.Deadline, now, "ago", "from now") + ")"
	}
	return label
}

func barTitle(row Row) string {
	e := row.Entity
	parts := []string{
		e.Name,
		row.Bar.EffectiveStart.Format("2006-01-02") + " to " + row.Bar.EffectiveEnd.Format("2006-01-02"),
		"status: " + string(e.Status),
	}
	if e.Budget != nil {
		spent := 0.0
		if e.Spent != nil {
			spent = *e.Spent
		}
		parts = append(parts, fmt.Sprintf("budget: %s / %s", humanize.CommafWithDigits(spent, 2), humanize.CommafWithDigits(*e.Budget, 2)))
	}
	return strings.Join(parts, "\n")
}

// escapeXML escapes the characters that are special in SVG text and
// attribute values.
func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
