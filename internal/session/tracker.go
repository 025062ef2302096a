// Package session tracks score, streaks and completion for practice sessions.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/anzan/internal/model"
	"github.com/verte-zerg/anzan/internal/validation"
)

// DefaultTimeAttack is the time attack duration used when none is configured.
const DefaultTimeAttack = 60 * time.Second

var (
	// ErrNotActive is returned when a session is missing or already complete.
	ErrNotActive = errors.New("session is not active")
	// ErrNoProblem is returned when an answer arrives with no problem in flight.
	ErrNoProblem = errors.New("no problem in flight")
)

// Tracker owns the all-time best streak shared by every session it starts.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	bestStreakAllTime int
}

// NewTracker returns a Tracker with no recorded streaks.
func NewTracker() *Tracker {
	return &Tracker{}
}

// BestStreakAllTime returns the longest streak seen by this tracker.
func (t *Tracker) BestStreakAllTime() int {
	return t.bestStreakAllTime
}

// Start validates cfg and returns a fresh active session.
func (t *Tracker) Start(cfg model.SessionConfig, now time.Time) (*model.SessionState, error) {
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	switch cfg.Mode {
	case model.ModeFixedCount:
		if cfg.Target < 1 {
			return nil, fmt.Errorf("%w: fixed sessions need at least one question", model.ErrConfiguration)
		}
	case model.ModeTimeAttack:
		if cfg.Duration == 0 {
			cfg.Duration = DefaultTimeAttack
		}
	}
	if cfg.Specs != nil {
		if err := cfg.Specs.Validate(cfg.Operation); err != nil {
			return nil, err
		}
	}
	return &model.SessionState{
		ID:                uuid.NewString(),
		Config:            cfg,
		Phase:             model.PhaseActive,
		BestStreakAllTime: t.bestStreakAllTime,
		StartedAt:         now,
	}, nil
}

// Ask makes p the problem the next Submit is judged against.
func (t *Tracker) Ask(state *model.SessionState, p model.Problem) error {
	if state == nil || state.Phase != model.PhaseActive {
		return ErrNotActive
	}
	state.Current = &p
	return nil
}

// Submit resolves the in-flight problem. A nil value counts as incorrect.
// Reaching the time limit always counts as a timeout, even with the right value.
func (t *Tracker) Submit(state *model.SessionState, value *int, elapsed time.Duration) (model.AnswerOutcome, error) {
	if state == nil || state.Phase != model.PhaseActive {
		return model.AnswerOutcome{}, ErrNotActive
	}
	if state.Current == nil {
		return model.AnswerOutcome{}, ErrNoProblem
	}
	p := *state.Current
	state.Current = nil

	timeout := p.HasTimeLimit() && elapsed >= p.TimeLimit
	outcome := model.AnswerOutcome{
		Problem: p,
		Elapsed: elapsed,
		Timeout: timeout,
		Correct: !timeout && value != nil && *value == p.Answer,
	}
	if value != nil {
		v := *value
		outcome.Value = &v
	}

	if outcome.Correct {
		state.Score++
		state.Streak++
		if state.Streak > state.BestStreak {
			state.BestStreak = state.Streak
		}
		if state.Streak > t.bestStreakAllTime {
			t.bestStreakAllTime = state.Streak
		}
	} else {
		state.Streak = 0
		if timeout {
			state.Timeouts++
		}
	}
	state.BestStreakAllTime = t.bestStreakAllTime
	state.Asked++
	state.History = append(state.History, outcome)

	if state.Config.Mode == model.ModeFixedCount && state.Asked >= state.Config.Target {
		state.Phase = model.PhaseComplete
	}
	return outcome, nil
}

// IsComplete reports whether the session has ended as of now.
func IsComplete(state *model.SessionState, now time.Time) bool {
	if state == nil {
		return false
	}
	if state.Phase == model.PhaseComplete {
		return true
	}
	if state.Phase != model.PhaseActive {
		return false
	}
	switch state.Config.Mode {
	case model.ModeFixedCount:
		return state.Asked >= state.Config.Target
	case model.ModeTimeAttack:
		return now.Sub(state.StartedAt) >= state.Config.Duration
	}
	return false
}

// Tick applies clock-driven completion and reports whether the session is over.
// A problem still in flight when the clock runs out is discarded unanswered.
func (t *Tracker) Tick(state *model.SessionState, now time.Time) bool {
	if !IsComplete(state, now) {
		return false
	}
	state.Phase = model.PhaseComplete
	state.Current = nil
	return true
}

// Remaining returns the time left in a time attack session, or zero for other modes.
func Remaining(state *model.SessionState, now time.Time) time.Duration {
	if state == nil || state.Config.Mode != model.ModeTimeAttack {
		return 0
	}
	left := state.Config.Duration - now.Sub(state.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}
