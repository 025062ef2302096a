package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/anzan/internal/model"
)

// Summary describes a single session as it stands.
type Summary struct {
	Score             int
	Asked             int
	Timeouts          int
	Incorrect         int
	BestStreak        int
	BestStreakAllTime int
	Accuracy          float64
	AverageTime       time.Duration
	Duration          time.Duration
	PerOperation      []model.OperationAggregate
}

// Summarize computes summary metrics for state as of endedAt.
func Summarize(state *model.SessionState, endedAt time.Time) Summary {
	if state == nil {
		return Summary{}
	}
	sum := Summary{
		Score:             state.Score,
		Asked:             state.Asked,
		Timeouts:          state.Timeouts,
		Incorrect:         state.Asked - state.Score - state.Timeouts,
		BestStreak:        state.BestStreak,
		BestStreakAllTime: state.BestStreakAllTime,
		Accuracy:          Accuracy(state.Score, state.Asked),
		AverageTime:       AverageTime(state.History),
		PerOperation:      OperationBreakdown(state.History),
	}
	if !state.StartedAt.IsZero() && endedAt.After(state.StartedAt) {
		sum.Duration = endedAt.Sub(state.StartedAt)
	}
	return sum
}

// OperationBreakdown aggregates outcomes per operation in display order.
// Timeouts are counted in Incorrect as well as Timeouts.
func OperationBreakdown(history []model.AnswerOutcome) []model.OperationAggregate {
	byOp := map[model.Operation]*model.OperationAggregate{}
	for _, o := range history {
		agg, ok := byOp[o.Problem.Operation]
		if !ok {
			agg = &model.OperationAggregate{Operation: o.Problem.Operation}
			byOp[o.Problem.Operation] = agg
		}
		if o.Correct {
			agg.Correct++
		} else {
			agg.Incorrect++
		}
		if o.Timeout {
			agg.Timeouts++
		}
		agg.ElapsedSumMs += o.Elapsed.Milliseconds()
	}
	out := make([]model.OperationAggregate, 0, len(byOp))
	for _, op := range model.Operations {
		if agg, ok := byOp[op]; ok {
			out = append(out, *agg)
		}
	}
	return out
}

// RenderSessionSummary prints the end-of-session report.
func RenderSessionSummary(w io.Writer, sum Summary) error {
	lines := []string{
		"",
		"Session complete",
		fmt.Sprintf("Score: %d/%d", sum.Score, sum.Asked),
		fmt.Sprintf("Accuracy: %.1f%%", sum.Accuracy),
		fmt.Sprintf("Avg Time: %.2fs", sum.AverageTime.Seconds()),
		fmt.Sprintf("Timeouts: %d", sum.Timeouts),
		fmt.Sprintf("Best Streak: %d (all-time %d)", sum.BestStreak, sum.BestStreakAllTime),
	}
	if sum.Duration > 0 {
		lines = append(lines, fmt.Sprintf("Duration: %s", sum.Duration.Round(100*time.Millisecond)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(sum.PerOperation) > 1 {
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
		return RenderOperationTable(w, sum.PerOperation)
	}
	return nil
}
