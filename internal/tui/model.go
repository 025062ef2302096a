// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/anzan/internal/model"
	"github.com/verte-zerg/anzan/internal/session"
	statsPkg "github.com/verte-zerg/anzan/internal/stats"
	"github.com/verte-zerg/anzan/internal/store"
)

const (
	tickInterval       = 100 * time.Millisecond
	correctFeedback    = 500 * time.Millisecond
	incorrectFeedback  = 1500 * time.Millisecond
	answerCharLimit    = 12
	defaultContentSize = 48
)

// ProblemSource produces the next problem for an operation selector.
type ProblemSource interface {
	Next(op model.Operation, specs model.SpecSet) (model.Problem, error)
}

// Options configures the practice UI.
type Options struct {
	Config  model.SessionConfig
	Source  ProblemSource
	Tracker *session.Tracker
	// Store is optional; finished sessions are not saved without one.
	Store *store.Store
	Log   zerolog.Logger
	Now   func() time.Time
}

type uiPhase int

const (
	phaseAsking uiPhase = iota
	phaseFeedback
	phaseFinished
)

// tickMsg drives the game clock. Each round and each resume starts a new
// tick chain; ticks from older chains are dropped.
type tickMsg struct {
	id int
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	opts Options
	now  func() time.Time

	width  int
	height int

	state   *model.SessionState
	phase   uiPhase
	problem model.Problem
	askedAt time.Time
	round   int
	tickID  int

	last       *model.AnswerOutcome
	feedbackAt time.Time

	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration

	input textinput.Model
	bar   progress.Model

	summary statsPkg.Summary
	err     error

	lastAcc float64
	hasLast bool
	allAcc  float64
	allOK   int
	allAsk  int
}

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	timeoutStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	problemStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel starts a session and constructs the practice UI for it.
func NewModel(opts Options) (*Model, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	input := textinput.New()
	input.Placeholder = "answer"
	input.Prompt = "> "
	input.CharLimit = answerCharLimit
	input.Width = answerCharLimit

	m := &Model{
		opts:  opts,
		now:   opts.Now,
		input: input,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.bar.Width = defaultContentSize
	if err := m.startSession(); err != nil {
		return nil, err
	}
	m.loadFooterStats()
	return m, nil
}

// State returns the current session state.
func (m *Model) State() *model.SessionState {
	return m.state
}

// Err returns the error that stopped the UI, if any.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.scheduleTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.contentWidth()
		return m, nil
	case tickMsg:
		if msg.id != m.tickID || m.paused || m.phase == phaseFinished {
			return m, nil
		}
		m.onTick()
		if m.err != nil {
			return m, tea.Quit
		}
		if m.phase == phaseFinished {
			return m, nil
		}
		return m, m.scheduleTick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.phase == phaseFinished {
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "r", "enter":
			if err := m.restart(); err != nil {
				m.err = err
				return m, tea.Quit
			}
			return m, tea.Batch(m.input.Focus(), m.scheduleTick())
		}
		return m, nil
	}
	if msg.Type == tea.KeyEsc || msg.Type == tea.KeyCtrlP {
		return m, m.togglePause()
	}
	if m.paused || m.phase != phaseAsking {
		return m, nil
	}
	if msg.Type == tea.KeyEnter {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.resolve(parseAnswer(text), m.gameNow().Sub(m.askedAt))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.phase == phaseFinished:
		content = m.renderSummary()
	case m.paused:
		content = titleStyle.Render("Paused") + "\n\n" + pendingStyle.Render("esc to resume · ctrl+c to quit")
	default:
		content = m.renderRound()
	}
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	width := m.contentWidth()
	content = lipgloss.NewStyle().Width(width).Render(content)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return defaultContentSize
	}
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) scheduleTick() tea.Cmd {
	id := m.tickID
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{id: id}
	})
}

// gameNow is wall time minus every paused interval.
func (m *Model) gameNow() time.Time {
	now := m.now()
	if m.paused {
		now = m.pausedAt
	}
	return now.Add(-m.pausedTotal)
}

func (m *Model) startSession() error {
	m.pausedTotal = 0
	m.paused = false
	state, err := m.opts.Tracker.Start(m.opts.Config, m.gameNow())
	if err != nil {
		return err
	}
	m.state = state
	m.last = nil
	m.round = 0
	m.opts.Log.Debug().Str("session", state.ID).Msg("session started")
	return m.nextRound(m.gameNow())
}

func (m *Model) restart() error {
	m.tickID++
	return m.startSession()
}

func (m *Model) nextRound(game time.Time) error {
	p, err := m.opts.Source.Next(m.opts.Config.Operation, m.opts.Config.Specs)
	if err != nil {
		return err
	}
	if err := m.opts.Tracker.Ask(m.state, p); err != nil {
		return err
	}
	m.problem = p
	m.askedAt = game
	m.round++
	m.tickID++
	m.phase = phaseAsking
	m.input.Reset()
	m.input.Focus()
	return nil
}

func (m *Model) onTick() {
	game := m.gameNow()
	if m.phase == phaseFeedback && game.Sub(m.feedbackAt) < m.feedbackDelay() {
		if m.state.Config.Mode == model.ModeTimeAttack && m.opts.Tracker.Tick(m.state, game) {
			m.finish(game)
		}
		return
	}
	if m.opts.Tracker.Tick(m.state, game) {
		m.finish(game)
		return
	}
	switch m.phase {
	case phaseFeedback:
		if err := m.nextRound(game); err != nil {
			m.err = err
		}
	case phaseAsking:
		if m.problem.HasTimeLimit() && game.Sub(m.askedAt) >= m.problem.TimeLimit {
			m.resolve(nil, m.problem.TimeLimit)
		}
	}
}

func (m *Model) resolve(value *int, elapsed time.Duration) {
	outcome, err := m.opts.Tracker.Submit(m.state, value, elapsed)
	if err != nil {
		m.opts.Log.Error().Err(err).Msg("failed to submit answer")
		return
	}
	m.last = &outcome
	m.feedbackAt = m.gameNow()
	m.phase = phaseFeedback
	m.input.Blur()
}

func (m *Model) feedbackDelay() time.Duration {
	if m.last != nil && m.last.Correct {
		return correctFeedback
	}
	return incorrectFeedback
}

func (m *Model) togglePause() tea.Cmd {
	if !m.paused {
		m.paused = true
		m.pausedAt = m.now()
		m.input.Blur()
		return nil
	}
	m.pausedTotal += m.now().Sub(m.pausedAt)
	m.paused = false
	m.tickID++
	if m.phase == phaseAsking {
		return tea.Batch(m.input.Focus(), m.scheduleTick())
	}
	return m.scheduleTick()
}

func (m *Model) finish(game time.Time) {
	m.phase = phaseFinished
	m.input.Blur()
	m.summary = statsPkg.Summarize(m.state, game)
	m.opts.Log.Info().
		Str("session", m.state.ID).
		Int("score", m.state.Score).
		Int("asked", m.state.Asked).
		Msg("session finished")
	if m.opts.Store == nil || m.state.Asked == 0 {
		return
	}
	ctx := context.Background()
	if _, err := m.opts.Store.InsertSession(ctx, m.state, game); err != nil {
		m.opts.Log.Error().Err(err).Msg("failed to save session")
		return
	}
	m.lastAcc = m.summary.Accuracy
	m.hasLast = true
	m.allOK += m.state.Score
	m.allAsk += m.state.Asked
	m.allAcc = statsPkg.Accuracy(m.allOK, m.allAsk)
}

func (m *Model) loadFooterStats() {
	if m.opts.Store == nil {
		return
	}
	ctx := context.Background()
	sessions, err := m.opts.Store.ListSessions(ctx, model.StatsConfig{Operation: m.opts.Config.Operation})
	if err != nil {
		m.opts.Log.Error().Err(err).Msg("failed to load session stats")
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	m.lastAcc = statsPkg.Accuracy(last.Score, last.Questions)
	m.hasLast = true
	for _, s := range sessions {
		m.allOK += s.Score
		m.allAsk += s.Questions
	}
	m.allAcc = statsPkg.Accuracy(m.allOK, m.allAsk)
}

func (m *Model) renderRound() string {
	lines := []string{m.renderHeader(), ""}
	lines = append(lines, problemStyle.Render(m.problem.Prompt()))
	if m.problem.HasTimeLimit() {
		left := m.problem.TimeLimit - m.gameNow().Sub(m.askedAt)
		if m.phase != phaseAsking || left < 0 {
			left = 0
		}
		lines = append(lines, m.bar.ViewAs(float64(left)/float64(m.problem.TimeLimit)))
	}
	lines = append(lines, "")
	if m.phase == phaseAsking {
		lines = append(lines, m.input.View())
	} else {
		lines = append(lines, renderFeedback(m.last))
	}
	strip := buildOutcomeStrip(m.state.History, m.pendingSlots())
	if len(strip) > 0 {
		lines = append(lines, "", wrapStyledRunes(strip, m.contentWidth()))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader() string {
	cfg := m.state.Config
	parts := []string{titleStyle.Render("anzan"), string(cfg.Operation)}
	if cfg.Level != "" {
		parts = append(parts, string(cfg.Level))
	}
	switch cfg.Mode {
	case model.ModeTimeAttack:
		left := session.Remaining(m.state, m.gameNow())
		parts = append(parts, fmt.Sprintf("%ds left", int(left.Round(time.Second).Seconds())))
	default:
		parts = append(parts, fmt.Sprintf("Question %d/%d", m.round, cfg.Target))
	}
	return strings.Join(parts, " · ")
}

func (m *Model) pendingSlots() int {
	if m.state.Config.Mode != model.ModeFixedCount {
		return 0
	}
	n := m.state.Config.Target - m.state.Asked
	if n < 0 {
		return 0
	}
	return n
}

func renderFeedback(o *model.AnswerOutcome) string {
	if o == nil {
		return ""
	}
	p := o.Problem
	solved := fmt.Sprintf("%d %s %d = %d", p.Operand1, p.Operation.Symbol(), p.Operand2, p.Answer)
	switch {
	case o.Correct:
		return correctStyle.Render(fmt.Sprintf("Correct · %.1fs", o.Elapsed.Seconds()))
	case o.Timeout:
		return timeoutStyle.Render("Time's up · " + solved)
	case o.Value == nil:
		return incorrectStyle.Render("Not a number · " + solved)
	default:
		return incorrectStyle.Render(fmt.Sprintf("Wrong (%d) · %s", *o.Value, solved))
	}
}

func (m *Model) renderSummary() string {
	sum := m.summary
	lines := []string{
		titleStyle.Render("Session complete"),
		"",
		fmt.Sprintf("Score      %d/%d", sum.Score, sum.Asked),
		fmt.Sprintf("Accuracy   %d%%", statsPkg.RoundedAccuracy(sum.Score, sum.Asked)),
		fmt.Sprintf("Avg time   %.2fs", sum.AverageTime.Seconds()),
		fmt.Sprintf("Timeouts   %d", sum.Timeouts),
		fmt.Sprintf("Best       %d (all-time %d)", sum.BestStreak, sum.BestStreakAllTime),
	}
	if len(sum.PerOperation) > 1 {
		lines = append(lines, "")
		headers := []string{"Op", "Accuracy", "Avg (s)", "OK", "Miss", "Timeout"}
		rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
		lines = append(lines, statsPkg.FormatTable(headers, statsPkg.OperationRows(sum.PerOperation), rightAlign)...)
	}
	lines = append(lines, "", pendingStyle.Render("r restart · q quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	if m.state == nil {
		return ""
	}
	s := m.state
	segments := []string{
		fmt.Sprintf("Score %d/%d", s.Score, s.Asked),
		fmt.Sprintf("Accuracy %d%%", statsPkg.RoundedAccuracy(s.Score, s.Asked)),
		fmt.Sprintf("Streak %d", s.Streak),
		fmt.Sprintf("Best %d", s.BestStreak),
		fmt.Sprintf("All-time %d", s.BestStreakAllTime),
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f%%", m.lastAcc))
		segments = append(segments, fmt.Sprintf("History %.1f%%", m.allAcc))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

// parseAnswer returns nil for anything that is not an integer.
func parseAnswer(text string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil
	}
	return &v
}
