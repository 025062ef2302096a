package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Unit: "%", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
		{Name: "Empty"},
	}, 12, 3)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "A: min=1.00% max=3.00% last=1.00%") {
		t.Fatalf("expected series header in output:\n%s", out)
	}
	if strings.Contains(out, "Empty") {
		t.Fatalf("expected empty series to be skipped")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expected := 1 + 2*(1+3)
	if len(lines) != expected {
		t.Fatalf("expected %d lines of output, got %d", expected, len(lines))
	}
	if !strings.HasSuffix(lines[2], "  █  ") {
		t.Fatalf("expected peak only in top row, got %q", lines[2])
	}
}

func TestChartRowsFillBottomUp(t *testing.T) {
	rows := chartRows([]float64{0, 10}, 0, 10, 2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].bars != " █" || rows[1].bars != "▁█" {
		t.Fatalf("unexpected bars %q / %q", rows[0].bars, rows[1].bars)
	}
	if rows[0].label != "10.0" || rows[1].label != "0.0" {
		t.Fatalf("unexpected axis labels %q / %q", rows[0].label, rows[1].label)
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := axisLabelWidth + runewidth.StringWidth(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axisWidth {
		t.Fatalf("expected width %d, got %d", 80-axisWidth, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestResampleSeriesAveragesBuckets(t *testing.T) {
	got := resampleSeries([]float64{1, 3, 5, 7}, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("unexpected resample %v", got)
	}
}
