package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/anzan/internal/model"
	"github.com/verte-zerg/anzan/internal/session"
	"github.com/verte-zerg/anzan/internal/stats"
)

// ProblemSource produces the next problem for an operation selector.
type ProblemSource interface {
	Next(op model.Operation, specs model.SpecSet) (model.Problem, error)
}

// Runner drives one session at a time through a Prompter.
type Runner struct {
	Prompter *Prompter
	Tracker  *session.Tracker
	Source   ProblemSource
	Now      func() time.Time
	Log      zerolog.Logger
}

// Run plays a session until it completes, the input closes, or ctx is cancelled.
// The returned state is valid even when err is non-nil.
func (r *Runner) Run(ctx context.Context, cfg model.SessionConfig) (*model.SessionState, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	state, err := r.Tracker.Start(cfg, now())
	if err != nil {
		return nil, err
	}
	r.Log.Debug().Str("session", state.ID).Str("op", string(cfg.Operation)).Str("mode", string(cfg.Mode)).Msg("session started")
	r.Prompter.Printf("%s\n", header(state))

	stale := false
	for !r.Tracker.Tick(state, now()) {
		p, err := r.Source.Next(cfg.Operation, cfg.Specs)
		if err != nil {
			return state, err
		}
		if err := r.Tracker.Ask(state, p); err != nil {
			return state, err
		}
		// Lines typed after a timeout belong to the round that already resolved.
		if stale {
			if n := r.Prompter.Drain(); n > 0 {
				r.Log.Debug().Int("lines", n).Msg("dropped stale input")
			}
			stale = false
		}

		wait, sessionBound := roundWait(state, p, now())
		if sessionBound && wait <= 0 {
			continue
		}
		askedAt := now()
		line, err := r.Prompter.Ask(ctx, question(state, p), wait)
		switch {
		case errors.Is(err, ErrTimeout):
			stale = true
			if sessionBound {
				// The session clock ran out first; Tick discards the round.
				continue
			}
			outcome, serr := r.Tracker.Submit(state, nil, p.TimeLimit)
			if serr != nil {
				return state, serr
			}
			r.feedback(outcome)
			continue
		case err != nil:
			return state, err
		}

		outcome, err := r.Tracker.Submit(state, parseAnswer(line), now().Sub(askedAt))
		if err != nil {
			return state, err
		}
		r.feedback(outcome)
	}
	return state, nil
}

// roundWait returns how long to wait for an answer and whether the session clock bounds it.
func roundWait(state *model.SessionState, p model.Problem, now time.Time) (time.Duration, bool) {
	wait := p.TimeLimit
	if state.Config.Mode != model.ModeTimeAttack {
		return wait, false
	}
	left := session.Remaining(state, now)
	if wait == 0 || left < wait {
		return left, true
	}
	return wait, false
}

// parseAnswer returns nil for anything that is not an integer.
func parseAnswer(line string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil
	}
	return &v
}

func header(state *model.SessionState) string {
	cfg := state.Config
	switch cfg.Mode {
	case model.ModeTimeAttack:
		return fmt.Sprintf("Time attack: %s, %s. Answer as many as you can in %s.", cfg.Operation, cfg.Level, cfg.Duration)
	default:
		return fmt.Sprintf("Practice: %d %s problems, %s.", cfg.Target, cfg.Operation, cfg.Level)
	}
}

func question(state *model.SessionState, p model.Problem) string {
	var b strings.Builder
	if state.Config.Mode == model.ModeFixedCount {
		fmt.Fprintf(&b, "[%d/%d] ", state.Asked+1, state.Config.Target)
	} else {
		fmt.Fprintf(&b, "[%d] ", state.Asked+1)
	}
	b.WriteString(p.Prompt())
	if p.HasTimeLimit() {
		fmt.Fprintf(&b, " (%s)", p.TimeLimit)
	}
	return b.String()
}

func (r *Runner) feedback(o model.AnswerOutcome) {
	p := o.Problem
	solved := fmt.Sprintf("%d %s %d = %d", p.Operand1, p.Operation.Symbol(), p.Operand2, p.Answer)
	switch {
	case o.Correct:
		r.Prompter.Printf("  correct (%.1fs)\n", o.Elapsed.Seconds())
	case o.Timeout:
		r.Prompter.Printf("  time's up: %s\n", solved)
	default:
		r.Prompter.Printf("  wrong: %s\n", solved)
	}
}

// Report prints the end-of-session summary.
func (r *Runner) Report(state *model.SessionState, endedAt time.Time) error {
	return stats.RenderSessionSummary(r.Prompter.out, stats.Summarize(state, endedAt))
}
