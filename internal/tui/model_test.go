package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/anzan/internal/model"
	"github.com/verte-zerg/anzan/internal/session"
	"github.com/verte-zerg/anzan/internal/store"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixedSource struct {
	problem model.Problem
}

func (s fixedSource) Next(model.Operation, model.SpecSet) (model.Problem, error) {
	return s.problem, nil
}

func threePlusFive(limit time.Duration) fixedSource {
	return fixedSource{problem: model.Problem{Operation: model.OpAdd, Operand1: 3, Operand2: 5, Answer: 8, TimeLimit: limit}}
}

func fixedConfig(n int) model.SessionConfig {
	return model.SessionConfig{Mode: model.ModeFixedCount, Target: n, Operation: model.OpAdd, Level: model.LevelBeginner}
}

func newTestModel(t *testing.T, cfg model.SessionConfig, src ProblemSource, st *store.Store) (*Model, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m, err := NewModel(Options{
		Config:  cfg,
		Source:  src,
		Tracker: session.NewTracker(),
		Store:   st,
		Log:     zerolog.Nop(),
		Now:     clock.Now,
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m, clock
}

func typeAnswer(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func tick(m *Model) tea.Cmd {
	_, cmd := m.Update(tickMsg{id: m.tickID})
	return cmd
}

func TestCorrectAnswerThenNextRound(t *testing.T) {
	m, clock := newTestModel(t, fixedConfig(3), threePlusFive(5*time.Second), nil)
	clock.Advance(2 * time.Second)
	typeAnswer(m, "8")

	s := m.State()
	if s.Score != 1 || s.Streak != 1 || s.Asked != 1 {
		t.Fatalf("unexpected state after answer: score=%d streak=%d asked=%d", s.Score, s.Streak, s.Asked)
	}
	if m.phase != phaseFeedback || !m.last.Correct || m.last.Elapsed != 2*time.Second {
		t.Fatalf("expected correct feedback, got phase %d outcome %+v", m.phase, m.last)
	}

	clock.Advance(400 * time.Millisecond)
	tick(m)
	if m.phase != phaseFeedback {
		t.Fatalf("expected feedback to last 500ms")
	}
	prevID := m.tickID
	clock.Advance(200 * time.Millisecond)
	tick(m)
	if m.phase != phaseAsking || m.round != 2 {
		t.Fatalf("expected second round, got phase %d round %d", m.phase, m.round)
	}
	if m.tickID == prevID {
		t.Fatalf("expected a new tick chain for the new round")
	}
	if m.input.Value() != "" {
		t.Fatalf("expected cleared input, got %q", m.input.Value())
	}
}

func TestRoundTimesOut(t *testing.T) {
	m, clock := newTestModel(t, fixedConfig(3), threePlusFive(5*time.Second), nil)
	clock.Advance(5 * time.Second)
	tick(m)

	s := m.State()
	if s.Timeouts != 1 || s.Score != 0 || s.Asked != 1 {
		t.Fatalf("unexpected state: score=%d asked=%d timeouts=%d", s.Score, s.Asked, s.Timeouts)
	}
	if !m.last.Timeout || m.last.Elapsed != 5*time.Second {
		t.Fatalf("unexpected outcome %+v", m.last)
	}

	typeAnswer(m, "8")
	if s.Asked != 1 {
		t.Fatalf("expected input during feedback to be ignored")
	}

	clock.Advance(time.Second)
	tick(m)
	if m.phase != phaseFeedback {
		t.Fatalf("expected 1.5s feedback after a timeout")
	}
}

func TestStaleTickIgnored(t *testing.T) {
	m, clock := newTestModel(t, fixedConfig(3), threePlusFive(5*time.Second), nil)
	clock.Advance(10 * time.Second)
	_, cmd := m.Update(tickMsg{id: m.tickID - 1})
	if cmd != nil {
		t.Fatalf("expected stale tick to end its chain")
	}
	if m.State().Asked != 0 || m.phase != phaseAsking {
		t.Fatalf("expected stale tick to leave the round alone")
	}
}

func TestPauseExcludedFromClock(t *testing.T) {
	m, clock := newTestModel(t, fixedConfig(3), threePlusFive(5*time.Second), nil)
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.paused {
		t.Fatalf("expected paused")
	}
	clock.Advance(10 * time.Second)
	tick(m)
	if m.State().Asked != 0 {
		t.Fatalf("expected no timeout while paused")
	}
	if !strings.Contains(m.View(), "Paused") {
		t.Fatalf("expected paused view")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	clock.Advance(2 * time.Second)
	tick(m)
	if m.phase != phaseAsking {
		t.Fatalf("expected round to continue after resume")
	}
	typeAnswer(m, "8")
	if !m.last.Correct || m.last.Elapsed != 2*time.Second {
		t.Fatalf("expected paused time excluded, got %+v", m.last)
	}
}

func TestNonNumericAnswerIsIncorrect(t *testing.T) {
	m, _ := newTestModel(t, fixedConfig(3), threePlusFive(5*time.Second), nil)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.State().Asked != 0 {
		t.Fatalf("expected empty input to be ignored")
	}
	typeAnswer(m, "x")
	if m.State().Asked != 1 || m.last.Correct || m.last.Value != nil {
		t.Fatalf("expected incorrect answer without value, got %+v", m.last)
	}
	if !strings.Contains(renderFeedback(m.last), "3 + 5 = 8") {
		t.Fatalf("expected solution in feedback")
	}
}

func TestTimeAttackFinishesOnClock(t *testing.T) {
	cfg := model.SessionConfig{Mode: model.ModeTimeAttack, Duration: 30 * time.Second, Operation: model.OpAdd}
	m, clock := newTestModel(t, cfg, threePlusFive(0), nil)
	clock.Advance(29 * time.Second)
	tick(m)
	if m.phase != phaseAsking {
		t.Fatalf("expected session to run until the clock expires")
	}
	clock.Advance(time.Second)
	if cmd := tick(m); cmd != nil {
		t.Fatalf("expected no further ticks after finishing")
	}
	if m.phase != phaseFinished || m.State().Phase != model.PhaseComplete {
		t.Fatalf("expected finished session")
	}
	if m.State().Asked != 0 || m.State().Current != nil {
		t.Fatalf("expected in-flight problem to be discarded")
	}
}

func TestFixedCountSavesAndRestarts(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "anzan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	m, clock := newTestModel(t, fixedConfig(1), threePlusFive(5*time.Second), st)
	typeAnswer(m, "8")
	clock.Advance(600 * time.Millisecond)
	tick(m)
	if m.phase != phaseFinished {
		t.Fatalf("expected finished after the last feedback")
	}
	if !strings.Contains(m.View(), "Session complete") {
		t.Fatalf("expected summary view")
	}

	sessions, err := st.ListSessions(context.Background(), model.StatsConfig{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Score != 1 {
		t.Fatalf("expected one saved session, got %+v", sessions)
	}
	if !m.hasLast || m.lastAcc != 100 {
		t.Fatalf("expected footer history to update")
	}

	first := m.State().ID
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	s := m.State()
	if s.ID == first || s.Score != 0 || s.Phase != model.PhaseActive {
		t.Fatalf("expected a fresh session after restart")
	}
	if s.BestStreakAllTime != 1 {
		t.Fatalf("expected all-time best to survive restart, got %d", s.BestStreakAllTime)
	}
	if m.phase != phaseAsking || m.round != 1 {
		t.Fatalf("expected first round of new session")
	}
}

func TestNewModelRejectsBadConfig(t *testing.T) {
	_, err := NewModel(Options{
		Config:  fixedConfig(0),
		Source:  threePlusFive(0),
		Tracker: session.NewTracker(),
		Log:     zerolog.Nop(),
	})
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		state: &model.SessionState{
			Score:             3,
			Asked:             4,
			Streak:            2,
			BestStreak:        3,
			BestStreakAllTime: 7,
		},
		hasLast: true,
		lastAcc: 80,
		allAcc:  72.5,
	}
	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Score 3/4", "Accuracy 75%", "Streak 2", "Best 3", "All-time 7", "Last 80.0%", "History 72.5%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
