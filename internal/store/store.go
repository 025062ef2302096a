// Package store handles SQLite persistence of finished sessions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/anzan/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout keeps stored timestamps fixed-width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			operation TEXT NOT NULL,
			level TEXT NOT NULL,
			target INTEGER NOT NULL,
			score INTEGER NOT NULL,
			questions INTEGER NOT NULL,
			timeouts INTEGER NOT NULL,
			best_streak INTEGER NOT NULL,
			elapsed_sum_ms INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS answers (
			session_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			operation TEXT NOT NULL,
			operand1 INTEGER NOT NULL,
			operand2 INTEGER NOT NULL,
			answer INTEGER NOT NULL,
			submitted INTEGER,
			elapsed_ms INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			timeout INTEGER NOT NULL,
			PRIMARY KEY (session_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_operation ON answers(operation);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and every answer in its history.
func (s *Store) InsertSession(ctx context.Context, state *model.SessionState, endedAt time.Time) (id int64, err error) {
	if state == nil {
		return 0, fmt.Errorf("session state is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var elapsedSum time.Duration
	for _, o := range state.History {
		elapsedSum += o.Elapsed
	}
	cfg := state.Config
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (uuid, started_at, ended_at, mode, operation, level, target, score, questions, timeouts, best_streak, elapsed_sum_ms, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.ID,
		state.StartedAt.UTC().Format(timeLayout),
		endedAt.UTC().Format(timeLayout),
		string(cfg.Mode),
		string(cfg.Operation),
		string(cfg.Level),
		cfg.Target,
		state.Score,
		state.Asked,
		state.Timeouts,
		state.BestStreak,
		elapsedSum.Milliseconds(),
		endedAt.Sub(state.StartedAt).Milliseconds(),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(state.History) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO answers (session_id, idx, operation, operand1, operand2, answer, submitted, elapsed_ms, correct, timeout)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, o := range state.History {
			var submitted sql.NullInt64
			if o.Value != nil {
				submitted = sql.NullInt64{Int64: int64(*o.Value), Valid: true}
			}
			if _, err = stmt.ExecContext(ctx, id, i,
				string(o.Problem.Operation),
				o.Problem.Operand1,
				o.Problem.Operand2,
				o.Problem.Answer,
				submitted,
				o.Elapsed.Milliseconds(),
				boolInt(o.Correct),
				boolInt(o.Timeout),
			); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, string(cfg.Operation))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, uuid, ended_at, mode, operation, level, score, questions, timeouts, best_streak, elapsed_sum_ms, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt, mode, op, level string
		if err := rows.Scan(&agg.SessionID, &agg.UUID, &endedAt, &mode, &op, &level,
			&agg.Score, &agg.Questions, &agg.Timeouts, &agg.BestStreak, &agg.ElapsedSumMs, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		agg.Mode = model.Mode(mode)
		agg.Operation = model.Operation(op)
		agg.Level = model.Level(level)
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListOperationAggregates aggregates answers per operation across sessions.
func (s *Store) ListOperationAggregates(ctx context.Context, sessionIDs []int64) ([]model.OperationAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT operation, SUM(correct) AS correct, SUM(1 - correct) AS incorrect,
		SUM(timeout) AS timeouts, SUM(elapsed_ms) AS elapsed_sum_ms
		FROM answers
		WHERE session_id IN (%s)
		GROUP BY operation`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.OperationAggregate
	for rows.Next() {
		var agg model.OperationAggregate
		var op string
		if err := rows.Scan(&op, &agg.Correct, &agg.Incorrect, &agg.Timeouts, &agg.ElapsedSumMs); err != nil {
			return nil, err
		}
		agg.Operation = model.Operation(op)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAnswers returns the stored history of one session in answer order.
func (s *Store) ListAnswers(ctx context.Context, sessionID int64) ([]model.AnswerOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT operation, operand1, operand2, answer, submitted, elapsed_ms, correct, timeout
		 FROM answers
		 WHERE session_id = ?
		 ORDER BY idx ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AnswerOutcome
	for rows.Next() {
		var (
			o         model.AnswerOutcome
			op        string
			submitted sql.NullInt64
			elapsedMs int64
			correct   int
			timeout   int
		)
		if err := rows.Scan(&op, &o.Problem.Operand1, &o.Problem.Operand2, &o.Problem.Answer,
			&submitted, &elapsedMs, &correct, &timeout); err != nil {
			return nil, err
		}
		o.Problem.Operation = model.Operation(op)
		if submitted.Valid {
			v := int(submitted.Int64)
			o.Value = &v
		}
		o.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		o.Correct = correct != 0
		o.Timeout = timeout != 0
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
