package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/anzan/internal/model"
	"github.com/verte-zerg/anzan/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	OpAggsAll        []model.OperationAggregate
	OpAggsWindow     []model.OperationAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	opAggsAll, err := st.ListOperationAggregates(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	opAggsWindow, err := st.ListOperationAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		OpAggsAll:        opAggsAll,
		OpAggsWindow:     opAggsWindow,
	}, nil
}

// Render writes the full plain-text report.
func (r Report) Render(w io.Writer, cfg model.StatsConfig, width int) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderCurvesWithSize(w, r.Sessions, cfg.CurveWindow, width, defaultChartHeight); err != nil {
		return err
	}
	if err := RenderOperationTable(w, r.OpAggsWindow); err != nil {
		return err
	}
	return RenderSessionTable(w, r.Sessions, 10)
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
