package render

import (
	"strings"
	"testing"
	"time"

	"ganttcal/internal/model"
	"ganttcal/internal/timeline"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func janWindow() timeline.Window {
	return timeline.Resolve(timeline.ModeMonth, date(2025, time.January, 15))
}

func sampleEntities() []model.Entity {
	return []model.Entity{
		{ID: "b", Name: "Beta", Status: model.StatusActive, StartDate: model.Time(date(2025, time.January, 10)), Deadline: model.Time(date(2025, time.January, 20))},
		{ID: "a", Name: "Alpha", Status: model.StatusPlanning, StartDate: model.Time(date(2025, time.January, 10)), Deadline: model.Time(date(2025, time.January, 12))},
		{ID: "c", Name: "Early <&> one", Status: model.StatusCompleted, StartDate: model.Time(date(2025, time.January, 1)), Budget: model.Float(1000), Spent: model.Float(250)},
		{ID: "d", Name: "Later", Status: model.StatusOnHold, StartDate: model.Time(date(2025, time.March, 1))},
	}
}

func TestBuildRows_SortsByEffectiveStartThenName(t *testing.T) {
	now := date(2025, time.January, 15)
	rows := BuildRows(sampleEntities(), janWindow(), now)

	var got []string
	for _, r := range rows {
		got = append(got, r.Entity.ID)
	}
	want := "c,a,b,d"
	if strings.Join(got, ",") != want {
		t.Fatalf("order: got %v, want %s", got, want)
	}
	if rows[3].Bar.Visible() {
		t.Fatalf("entity after the window should not be visible: %+v", rows[3].Bar)
	}
}

func TestSVG_ContainsBarsAndTodayMarker(t *testing.T) {
	now := date(2025, time.January, 15)
	rows := BuildRows(sampleEntities(), janWindow(), now)
	out := SVG(janWindow(), rows, now, SVGOptions{Width: 1000, LabelWidth: 200, Title: "Q1 & more"})

	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>") {
		t.Fatal("output is not a complete SVG document")
	}
	if got := strings.Count(out, `data-id="`); got != 3 {
		t.Fatalf("bars: got %d, want 3 visible", got)
	}
	if !strings.Contains(out, `class="today"`) {
		t.Fatal("missing today marker")
	}
	if strings.Contains(out, "<&>") || !strings.Contains(out, "Early &lt;&amp;&gt; one") {
		t.Fatal("labels are not escaped")
	}
	if !strings.Contains(out, "Q1 &amp; more") {
		t.Fatal("title is not escaped")
	}
	// Beta starts at 9/31 of the 800px chart.
	if !strings.Contains(out, `data-id="b" x="432"`) {
		t.Fatalf("unexpected bar position for Beta:\n%s", out)
	}
}

func TestSVG_NoTodayMarkerOutsideWindow(t *testing.T) {
	now := date(2025, time.June, 1)
	out := SVG(janWindow(), nil, now, SVGOptions{})
	if strings.Contains(out, `class="today"`) {
		t.Fatal("today marker drawn outside the window")
	}
}

func TestRowLabel_RelativeDeadline(t *testing.T) {
	now := date(2025, time.January, 15)
	e := model.Entity{Name: "Ship", Deadline: model.Time(now.Add(-48 * time.Hour))}
	if got := rowLabel(e, now); got != "Ship (due 2 days ago)" {
		t.Fatalf("got %q", got)
	}
}

func TestTerminal_QuantizesBars(t *testing.T) {
	now := date(2025, time.January, 15)
	w := janWindow()
	rows := BuildRows(sampleEntities(), w, now)
	out := Terminal(w, rows, termLabelWidth+1+31)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != len(rows)+1 {
		t.Fatalf("lines: got %d, want %d", len(lines), len(rows)+1)
	}
	if !strings.Contains(lines[0], "2025-01-01 .. 2025-01-31") {
		t.Fatalf("header: %q", lines[0])
	}
	// Alpha covers Jan 10 to Jan 12: two cells when one cell is one day.
	if !strings.Contains(lines[2], "Alpha") || strings.Count(lines[2], "█") != 2 {
		t.Fatalf("alpha row: %q", lines[2])
	}
	if strings.Count(lines[4], "█") != 0 {
		t.Fatalf("invisible row drew a bar: %q", lines[4])
	}
}

func TestCellSpan(t *testing.T) {
	tests := []struct {
		name      string
		bar       timeline.Bar
		cells     int
		wantStart int
		wantN     int
	}{
		{"hidden", timeline.Bar{Offset: 1, Width: 0}, 10, 0, 0},
		{"tiny bar gets a cell", timeline.Bar{Offset: 0.5, Width: 0.01}, 10, 5, 1},
		{"clamped at edge", timeline.Bar{Offset: 0.95, Width: 0.05}, 10, 9, 1},
		{"full", timeline.Bar{Offset: 0, Width: 1}, 10, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, n := cellSpan(tt.bar, tt.cells)
			if start != tt.wantStart || n != tt.wantN {
				t.Fatalf("got (%d, %d), want (%d, %d)", start, n, tt.wantStart, tt.wantN)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("a very long project name", 6); got != "a ver…" {
		t.Fatalf("got %q", got)
	}
}
