// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/anzan/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy returns score as a percentage of asked, or 0 before any answer.
func Accuracy(score, asked int) float64 {
	if asked <= 0 {
		return 0
	}
	return float64(score) / float64(asked) * 100
}

// RoundedAccuracy returns Accuracy rounded to a whole percent.
func RoundedAccuracy(score, asked int) int {
	return int(math.Round(Accuracy(score, asked)))
}

// AverageTime returns the mean elapsed time across outcomes.
func AverageTime(history []model.AnswerOutcome) time.Duration {
	if len(history) == 0 {
		return 0
	}
	var sum time.Duration
	for _, o := range history {
		sum += o.Elapsed
	}
	return sum / time.Duration(len(history))
}

// SessionMetrics computes accuracy, mean seconds per answer and answers per minute for a stored session.
func SessionMetrics(s model.SessionAggregate) (accuracy, avgSeconds, perMinute float64) {
	accuracy = Accuracy(s.Score, s.Questions)
	if s.Questions > 0 {
		avgSeconds = float64(s.ElapsedSumMs) / float64(s.Questions) / 1000.0
	}
	if s.DurationMs > 0 {
		perMinute = float64(s.Questions) / (float64(s.DurationMs) / 60000.0)
	}
	return accuracy, avgSeconds, perMinute
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Overview aggregates a list of stored sessions.
type Overview struct {
	Sessions    int
	Questions   int
	Score       int
	Timeouts    int
	AvgAccuracy float64
	BestAcc     float64
	AvgSeconds  float64
	BestStreak  int
	Practice    time.Duration
}

// BuildOverview folds stored sessions into an Overview.
func BuildOverview(sessions []model.SessionAggregate) Overview {
	var ov Overview
	if len(sessions) == 0 {
		return ov
	}
	var accSum float64
	var elapsedSum int64
	for _, s := range sessions {
		acc, _, _ := SessionMetrics(s)
		accSum += acc
		if acc > ov.BestAcc {
			ov.BestAcc = acc
		}
		if s.BestStreak > ov.BestStreak {
			ov.BestStreak = s.BestStreak
		}
		ov.Questions += s.Questions
		ov.Score += s.Score
		ov.Timeouts += s.Timeouts
		ov.Practice += time.Duration(s.DurationMs) * time.Millisecond
		elapsedSum += s.ElapsedSumMs
	}
	ov.Sessions = len(sessions)
	ov.AvgAccuracy = accSum / float64(len(sessions))
	if ov.Questions > 0 {
		ov.AvgSeconds = float64(elapsedSum) / float64(ov.Questions) / 1000.0
	}
	return ov
}

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	ov := BuildOverview(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", ov.Sessions),
		fmt.Sprintf("Problems: %d (%d correct, %d timeouts)", ov.Questions, ov.Score, ov.Timeouts),
		fmt.Sprintf("Avg Accuracy: %.2f%%", ov.AvgAccuracy),
		fmt.Sprintf("Best Accuracy: %.2f%%", ov.BestAcc),
		fmt.Sprintf("Avg Time: %.2fs", ov.AvgSeconds),
		fmt.Sprintf("Best Streak: %d", ov.BestStreak),
		fmt.Sprintf("Practice Time: %s", ov.Practice.Round(time.Second)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// CurveSeries returns the smoothed accuracy and mean-time series for sessions.
func CurveSeries(sessions []model.SessionAggregate, window int) []Series {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	times := make([]float64, len(sessions))
	for i, s := range sessions {
		acc, avg, _ := SessionMetrics(s)
		accs[i] = acc
		times[i] = avg
	}
	return []Series{
		{Name: "Accuracy", Unit: "%", Values: MovingAverage(accs, window)},
		{Name: "Avg Time", Unit: "s", Values: MovingAverage(times, window)},
	}
}

// RenderCurves prints learning curves for accuracy and answer time.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, defaultChartHeight)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int) error {
	series := CurveSeries(sessions, window)
	if len(series) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Learning Curves", series, width, height)
}

// RenderOperationTable prints per-operation aggregates, weakest first.
func RenderOperationTable(w io.Writer, aggs []model.OperationAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No operation stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Operation"); err != nil {
		return err
	}
	headers := []string{"Op", "Accuracy", "Avg Time (s)", "Correct", "Incorrect", "Timeouts"}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	lines := formatTable(headers, OperationRows(aggs), rightAlign)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// OperationRows formats aggregates as table rows, weakest first.
func OperationRows(aggs []model.OperationAggregate) [][]string {
	ranked := RankOperations(aggs)
	rows := make([][]string, 0, len(ranked))
	for _, agg := range ranked {
		rows = append(rows, []string{
			fmt.Sprintf("%s %s", agg.Operation.Symbol(), agg.Operation),
			fmt.Sprintf("%.2f%%", OperationAccuracy(agg)*100),
			fmt.Sprintf("%.2f", OperationAverageSeconds(agg)),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
			fmt.Sprintf("%d", agg.Timeouts),
		})
	}
	return rows
}

// RenderSessionTable prints the most recent sessions, newest first.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate, limit int) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Recent Sessions"); err != nil {
		return err
	}
	headers := []string{"Ended", "Mode", "Op", "Level", "Score", "Accuracy", "Avg Time (s)", "Best Streak"}
	rightAlign := map[int]bool{4: true, 5: true, 6: true, 7: true}
	lines := formatTable(headers, SessionRows(sessions, limit), rightAlign)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// SessionRows formats up to limit sessions as table rows, newest first.
func SessionRows(sessions []model.SessionAggregate, limit int) [][]string {
	if limit <= 0 || limit > len(sessions) {
		limit = len(sessions)
	}
	rows := make([][]string, 0, limit)
	for i := len(sessions) - 1; i >= len(sessions)-limit; i-- {
		s := sessions[i]
		acc, avg, _ := SessionMetrics(s)
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			string(s.Mode),
			string(s.Operation),
			string(s.Level),
			fmt.Sprintf("%d/%d", s.Score, s.Questions),
			fmt.Sprintf("%.0f%%", acc),
			fmt.Sprintf("%.2f", avg),
			fmt.Sprintf("%d", s.BestStreak),
		})
	}
	return rows
}

func seriesMinMax(values []float64) (float64, float64) {
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(minVal, 1) {
		minVal = 0
	}
	if math.IsInf(maxVal, -1) {
		maxVal = 0
	}
	return minVal, maxVal
}
