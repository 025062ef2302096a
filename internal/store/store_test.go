package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/anzan/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "anzan.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return s
}

func sampleState(id string, op model.Operation, started time.Time) *model.SessionState {
	eight := 8
	five := 5
	return &model.SessionState{
		ID: id,
		Config: model.SessionConfig{
			Mode:      model.ModeFixedCount,
			Target:    3,
			Operation: op,
			Level:     model.LevelBeginner,
		},
		Phase:      model.PhaseComplete,
		Score:      1,
		Asked:      3,
		BestStreak: 1,
		Timeouts:   1,
		History: []model.AnswerOutcome{
			{
				Problem: model.Problem{Operation: model.OpAdd, Operand1: 3, Operand2: 5, Answer: 8},
				Value:   &eight,
				Elapsed: 1200 * time.Millisecond,
				Correct: true,
			},
			{
				Problem: model.Problem{Operation: model.OpAdd, Operand1: 2, Operand2: 2, Answer: 4},
				Value:   &five,
				Elapsed: 800 * time.Millisecond,
			},
			{
				Problem: model.Problem{Operation: model.OpDivide, Operand1: 42, Operand2: 7, Answer: 6},
				Elapsed: 10 * time.Second,
				Timeout: true,
			},
		},
		StartedAt: started,
	}
}

func TestInsertAndListSessions(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	id, err := s.InsertSession(ctx, sampleState("a", model.OpMixed, start), start.Add(30*time.Second))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero session id")
	}

	sessions, err := s.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.UUID != "a" || got.Score != 1 || got.Questions != 3 || got.Timeouts != 1 {
		t.Fatalf("unexpected aggregate: %+v", got)
	}
	if got.ElapsedSumMs != 12000 {
		t.Fatalf("expected elapsed sum 12000ms, got %d", got.ElapsedSumMs)
	}
	if got.DurationMs != 30000 {
		t.Fatalf("expected duration 30000ms, got %d", got.DurationMs)
	}
	if got.Operation != model.OpMixed || got.Mode != model.ModeFixedCount {
		t.Fatalf("unexpected operation or mode: %+v", got)
	}
}

func TestListSessionsFilters(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	if _, err := s.InsertSession(ctx, sampleState("old", model.OpAdd, start), start.Add(time.Minute)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	later := start.Add(48 * time.Hour)
	if _, err := s.InsertSession(ctx, sampleState("new", model.OpDivide, later), later.Add(time.Minute)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	byOp, err := s.ListSessions(ctx, model.StatsConfig{Operation: model.OpDivide})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byOp) != 1 || byOp[0].UUID != "new" {
		t.Fatalf("operation filter returned %+v", byOp)
	}

	since := start.Add(24 * time.Hour)
	recent, err := s.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 1 || recent[0].UUID != "new" {
		t.Fatalf("since filter returned %+v", recent)
	}
}

func TestOperationAggregates(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	id, err := s.InsertSession(ctx, sampleState("a", model.OpMixed, start), start.Add(time.Minute))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	aggs, err := s.ListOperationAggregates(ctx, []int64{id})
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	byOp := map[model.Operation]model.OperationAggregate{}
	for _, agg := range aggs {
		byOp[agg.Operation] = agg
	}
	add := byOp[model.OpAdd]
	if add.Correct != 1 || add.Incorrect != 1 || add.Timeouts != 0 || add.ElapsedSumMs != 2000 {
		t.Fatalf("unexpected add aggregate: %+v", add)
	}
	div := byOp[model.OpDivide]
	if div.Correct != 0 || div.Incorrect != 1 || div.Timeouts != 1 {
		t.Fatalf("unexpected div aggregate: %+v", div)
	}

	none, err := s.ListOperationAggregates(ctx, nil)
	if err != nil || none != nil {
		t.Fatalf("expected empty result for no ids, got %v %v", none, err)
	}
}

func TestListAnswersKeepsMissingValues(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	id, err := s.InsertSession(ctx, sampleState("a", model.OpMixed, start), start.Add(time.Minute))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	answers, err := s.ListAnswers(ctx, id)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}
	if answers[0].Value == nil || *answers[0].Value != 8 || !answers[0].Correct {
		t.Fatalf("unexpected first answer: %+v", answers[0])
	}
	if answers[2].Value != nil || !answers[2].Timeout {
		t.Fatalf("expected timed out answer without value, got %+v", answers[2])
	}
	if answers[2].Problem.Prompt() != "42 ÷ 7 = ?" {
		t.Fatalf("unexpected prompt %q", answers[2].Problem.Prompt())
	}
}
