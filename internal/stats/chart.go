package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Unit   string
	Values []float64
}

const (
	defaultChartHeight  = 6
	minPlotWidth        = 10
	axisSeparator       = " │ "
	axisLabelWidth      = 7
	terminalWidthBackup = 80
)

var chartBlocks = []rune(" ▁▂▃▄▅▆▇█")

var seriesColors = []lipgloss.Color{"6", "5", "3", "2"}

// PlotSeries renders each series as a block chart scaled to its own min and max.
// A width of zero fits the chart to the terminal.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	series = filterSeries(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultChartHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	useColor := shouldUseColor(w)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for i, s := range series {
		values := resampleSeries(s.Values, width)
		minVal, maxVal := seriesMinMax(values)
		last := s.Values[len(s.Values)-1]
		header := fmt.Sprintf("%s: min=%.2f%s max=%.2f%s last=%.2f%s", s.Name, minVal, s.Unit, maxVal, s.Unit, last, s.Unit)
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		style := lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)])
		for _, row := range chartRows(values, minVal, maxVal, height) {
			if useColor {
				row.bars = style.Render(row.bars)
			}
			line := fmt.Sprintf("%*s%s%s", axisLabelWidth, row.label, axisSeparator, row.bars)
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

type chartRow struct {
	label string
	bars  string
}

// chartRows stacks block glyphs so each column reaches its value's height.
func chartRows(values []float64, minVal, maxVal float64, height int) []chartRow {
	steps := len(chartBlocks) - 1
	levels := make([]int, len(values))
	span := maxVal - minVal
	for i, v := range values {
		if span < 1e-9 {
			levels[i] = height * steps / 2
			if levels[i] == 0 {
				levels[i] = 1
			}
			continue
		}
		pos := (v - minVal) / span
		levels[i] = 1 + int(math.Round(pos*float64(height*steps-1)))
	}
	rows := make([]chartRow, height)
	for r := 0; r < height; r++ {
		floor := (height - 1 - r) * steps
		var b strings.Builder
		for _, lvl := range levels {
			fill := lvl - floor
			if fill < 0 {
				fill = 0
			}
			if fill > steps {
				fill = steps
			}
			b.WriteRune(chartBlocks[fill])
		}
		rows[r].bars = b.String()
	}
	rows[0].label = formatAxis(maxVal)
	if height > 1 {
		rows[height-1].label = formatAxis(minVal)
	}
	return rows
}

func formatAxis(v float64) string {
	label := fmt.Sprintf("%.1f", v)
	if runewidth.StringWidth(label) > axisLabelWidth {
		label = fmt.Sprintf("%.0f", v)
	}
	return runewidth.Truncate(label, axisLabelWidth, "")
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

// TerminalWidth returns the stdout width, or a fallback when it is not a terminal.
func TerminalWidth() int {
	return terminalWidth()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// resampleSeries averages buckets when there are more values than columns.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}
