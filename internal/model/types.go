// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/anzan/internal/validation"
)

// ErrConfiguration reports difficulty or session settings that cannot produce a valid round.
var ErrConfiguration = errors.New("invalid configuration")

// Operation identifies an arithmetic operation.
type Operation string

// Supported operations. OpMixed only selects; problems always carry a concrete operation.
const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "sub"
	OpMultiply Operation = "mul"
	OpDivide   Operation = "div"
	OpMixed    Operation = "mixed"
)

// Operations lists the concrete operations in display order.
var Operations = []Operation{OpAdd, OpSubtract, OpMultiply, OpDivide}

// ParseOperation accepts short and long operation names.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "addition", "+":
		return OpAdd, nil
	case "sub", "subtract", "subtraction", "-":
		return OpSubtract, nil
	case "mul", "multiply", "multiplication", "x", "*":
		return OpMultiply, nil
	case "div", "divide", "division", "/":
		return OpDivide, nil
	case "mixed", "mix", "all":
		return OpMixed, nil
	}
	return "", fmt.Errorf("unknown operation %q (use add, sub, mul, div or mixed)", s)
}

// Symbol returns the display symbol for the operation.
func (o Operation) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	}
	return "?"
}

// Concrete reports whether o can be stored on a Problem.
func (o Operation) Concrete() bool {
	switch o {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// Level names a difficulty preset.
type Level string

// Difficulty presets.
const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelCustom       Level = "custom"
)

// Levels lists the presets in ascending difficulty.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel accepts a preset name.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelBeginner, "easy", "1":
		return LevelBeginner, nil
	case LevelIntermediate, "medium", "2":
		return LevelIntermediate, nil
	case LevelAdvanced, "hard", "3":
		return LevelAdvanced, nil
	}
	return "", fmt.Errorf("unknown level %q (use beginner, intermediate or advanced)", s)
}

// Range is an inclusive sampling interval.
type Range struct {
	Min int `json:"min" validate:"min=1"`
	Max int `json:"max" validate:"gtefield=Min"`
}

// DigitRange returns the interval of k-digit numbers. One digit yields [1,9].
func DigitRange(k int) Range {
	return DigitSpan(k, k)
}

// DigitSpan returns the interval covering lo..hi digit numbers.
func DigitSpan(lo, hi int) Range {
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return Range{Min: pow10(lo - 1), Max: pow10(hi) - 1}
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Digits returns the digit counts of the range bounds.
func (r Range) Digits() (lo, hi int) {
	return digitCount(r.Min), digitCount(r.Max)
}

func (r Range) String() string {
	lo, hi := r.Digits()
	if r.Min == pow10(lo-1) && r.Max == pow10(hi)-1 {
		if lo == hi {
			return fmt.Sprintf("%dd", lo)
		}
		return fmt.Sprintf("%d-%dd", lo, hi)
	}
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}

// DifficultySpec configures problem generation for one operation.
// For division Operand1 bounds the dividend and Operand2 the divisor.
type DifficultySpec struct {
	Operand1      Range         `json:"operand1"`
	Operand2      Range         `json:"operand2"`
	TimeLimit     time.Duration `json:"time_limit" validate:"gte=0"`
	AllowNegative bool          `json:"allow_negative"`
}

// Validate checks the bounds for op and wraps failures in ErrConfiguration.
func (s DifficultySpec) Validate(op Operation) error {
	if !op.Concrete() {
		return fmt.Errorf("%w: operation %q has no single difficulty", ErrConfiguration, op)
	}
	if err := validation.Struct(s); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfiguration, op, err)
	}
	if op == OpDivide && !s.divisible() {
		return fmt.Errorf("%w: div: no divisor in %s divides any dividend in %s", ErrConfiguration, s.Operand2, s.Operand1)
	}
	return nil
}

// maxDivisorScan caps the feasibility scan over divisors.
const maxDivisorScan = 1 << 16

func (s DifficultySpec) divisible() bool {
	return len(FeasibleDivisors(s.Operand1, s.Operand2, 1)) > 0
}

// FeasibleDivisors returns up to limit divisors from divisors that divide at
// least one value of dividends exactly. limit <= 0 means no limit.
func FeasibleDivisors(dividends, divisors Range, limit int) []int {
	var out []int
	hi := divisors.Max
	if hi > dividends.Max {
		hi = dividends.Max
	}
	for d, scanned := divisors.Min, 0; d <= hi && scanned < maxDivisorScan; d, scanned = d+1, scanned+1 {
		if d <= 0 {
			continue
		}
		lo, up := QuotientBounds(dividends, d)
		if lo <= up {
			out = append(out, d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// QuotientBounds returns the quotients q >= 1 with divisor*q inside dividends.
// The interval is empty when lo > hi.
func QuotientBounds(dividends Range, divisor int) (lo, hi int) {
	lo = (dividends.Min + divisor - 1) / divisor
	if lo < 1 {
		lo = 1
	}
	hi = dividends.Max / divisor
	return lo, hi
}

// SpecSet maps each concrete operation to its difficulty.
type SpecSet map[Operation]DifficultySpec

// Validate checks every spec needed to serve op.
func (s SpecSet) Validate(op Operation) error {
	ops := []Operation{op}
	if op == OpMixed {
		ops = Operations
	}
	for _, o := range ops {
		spec, ok := s[o]
		if !ok {
			return fmt.Errorf("%w: no difficulty for %s", ErrConfiguration, o)
		}
		if err := spec.Validate(o); err != nil {
			return err
		}
	}
	return nil
}

// Problem is one generated question.
type Problem struct {
	Operation Operation
	Operand1  int
	Operand2  int
	Answer    int
	TimeLimit time.Duration
	CreatedAt time.Time
}

// HasTimeLimit reports whether the problem carries a deadline.
func (p Problem) HasTimeLimit() bool {
	return p.TimeLimit > 0
}

// Prompt renders the problem as "a op b = ?".
func (p Problem) Prompt() string {
	return fmt.Sprintf("%d %s %d = ?", p.Operand1, p.Operation.Symbol(), p.Operand2)
}

// AnswerOutcome records how one round resolved.
type AnswerOutcome struct {
	Problem Problem
	// Value is nil when nothing usable was submitted.
	Value   *int
	Elapsed time.Duration
	Correct bool
	Timeout bool
}

// Mode selects how a session ends.
type Mode string

// Session modes.
const (
	ModeFixedCount Mode = "fixed"
	ModeTimeAttack Mode = "time"
)

// ParseMode accepts a session mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "count", "fixed-count":
		return ModeFixedCount, nil
	case "time", "timed", "time-attack", "attack":
		return ModeTimeAttack, nil
	}
	return "", fmt.Errorf("unknown mode %q (use fixed or time)", s)
}

// Phase is the session lifecycle position.
type Phase int

// Session phases.
const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseComplete:
		return "complete"
	}
	return "idle"
}

// SessionConfig defines a practice session. It is fixed once the session starts.
type SessionConfig struct {
	Mode      Mode          `json:"mode" validate:"oneof=fixed time"`
	Target    int           `json:"questions" validate:"gte=0"`
	Duration  time.Duration `json:"duration" validate:"gte=0"`
	Operation Operation     `json:"op" validate:"oneof=add sub mul div mixed"`
	Level     Level         `json:"level"`
	Specs     SpecSet       `json:"-"`
}

// SessionState is the running state of one session.
type SessionState struct {
	ID     string
	Config SessionConfig
	Phase  Phase

	Score             int
	Asked             int
	Streak            int
	BestStreak        int
	BestStreakAllTime int
	Timeouts          int

	History []AnswerOutcome
	Current *Problem

	StartedAt time.Time
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Operation   Operation
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID    int64
	UUID         string
	EndedAt      time.Time
	Mode         Mode
	Operation    Operation
	Level        Level
	Score        int
	Questions    int
	Timeouts     int
	BestStreak   int
	ElapsedSumMs int64
	DurationMs   int64
}

// OperationAggregate aggregates answers for one operation.
type OperationAggregate struct {
	Operation    Operation
	Correct      int
	Incorrect    int
	Timeouts     int
	ElapsedSumMs int64
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func digitCount(v int) int {
	if v < 0 {
		v = -v
	}
	n := 1
	for v >= 10 {
		v /= 10
		n++
	}
	return n
}
