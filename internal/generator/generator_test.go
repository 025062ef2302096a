package generator

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/anzan/internal/model"
)

// scriptedSource makes rand.Intn(n) return the queued values in order (each must be < n).
type scriptedSource struct {
	values []int64
}

func (s *scriptedSource) Int63() int64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v << 32
}

func (s *scriptedSource) Seed(int64) {}

func scripted(values ...int64) *rand.Rand {
	return rand.New(&scriptedSource{values: values})
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func beginner(t *testing.T, op model.Operation) model.DifficultySpec {
	t.Helper()
	spec, err := Preset(op, model.LevelBeginner)
	require.NoError(t, err)
	return spec
}

func TestGenerateAdditionScripted(t *testing.T) {
	g := NewFromRand(scripted(2, 4), WithClock(fixedClock))
	p, err := g.Generate(model.OpAdd, beginner(t, model.OpAdd))
	require.NoError(t, err)

	assert.Equal(t, 3, p.Operand1)
	assert.Equal(t, 5, p.Operand2)
	assert.Equal(t, 8, p.Answer)
	assert.Equal(t, 5*time.Second, p.TimeLimit)
	assert.Equal(t, fixedNow, p.CreatedAt)
}

func TestGenerateDivisionScripted(t *testing.T) {
	// Divisor index 6 -> 7; quotient bounds for 2-digit dividends are [2,14], index 4 -> 6.
	g := NewFromRand(scripted(6, 4), WithClock(fixedClock))
	p, err := g.Generate(model.OpDivide, beginner(t, model.OpDivide))
	require.NoError(t, err)

	assert.Equal(t, 42, p.Operand1)
	assert.Equal(t, 7, p.Operand2)
	assert.Equal(t, 6, p.Answer)
}

func TestDivisionIsExactAndInRange(t *testing.T) {
	for _, level := range model.Levels {
		spec, err := Preset(model.OpDivide, level)
		require.NoError(t, err)
		g := NewSeeded(int64(len(level)))
		for i := 0; i < 2000; i++ {
			p, err := g.Generate(model.OpDivide, spec)
			require.NoError(t, err)
			require.NotZero(t, p.Operand2)
			require.Zero(t, p.Operand1%p.Operand2, "%d ÷ %d", p.Operand1, p.Operand2)
			require.Equal(t, p.Operand1, p.Operand2*p.Answer)
			require.True(t, spec.Operand1.Contains(p.Operand1), "dividend %d outside %s", p.Operand1, spec.Operand1)
			require.True(t, spec.Operand2.Contains(p.Operand2), "divisor %d outside %s", p.Operand2, spec.Operand2)
		}
	}
}

func TestDivisionFallsBackToFeasibleDivisors(t *testing.T) {
	// Most divisors in 5..90 have no multiple in 10..12.
	spec := model.DifficultySpec{
		Operand1: model.Range{Min: 10, Max: 12},
		Operand2: model.Range{Min: 5, Max: 90},
	}
	g := NewSeeded(7)
	for i := 0; i < 200; i++ {
		p, err := g.Generate(model.OpDivide, spec)
		require.NoError(t, err)
		assert.Contains(t, []int{5, 6, 10, 11, 12}, p.Operand2)
		assert.Equal(t, p.Operand1, p.Operand2*p.Answer)
	}
}

func TestDivisionImpossibleBounds(t *testing.T) {
	spec := model.DifficultySpec{
		Operand1: model.DigitRange(1),
		Operand2: model.Range{Min: 10, Max: 20},
	}
	_, err := NewSeeded(1).Generate(model.OpDivide, spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestSubtractionNeverNegative(t *testing.T) {
	for _, level := range model.Levels {
		spec, err := Preset(model.OpSubtract, level)
		require.NoError(t, err)
		g := NewSeeded(42)
		for i := 0; i < 2000; i++ {
			p, err := g.Generate(model.OpSubtract, spec)
			require.NoError(t, err)
			require.GreaterOrEqual(t, p.Operand1, p.Operand2)
			require.GreaterOrEqual(t, p.Operand2, 1)
			require.GreaterOrEqual(t, p.Answer, 0)
			require.Equal(t, p.Operand1-p.Operand2, p.Answer)
		}
	}
}

func TestSubtractionSecondOperandCappedByFirst(t *testing.T) {
	// Minuend 1-digit, subtrahend bound is 2-digit: subtrahend is still <= minuend.
	spec := model.DifficultySpec{Operand1: model.DigitRange(1), Operand2: model.DigitRange(2)}
	g := NewSeeded(3)
	for i := 0; i < 500; i++ {
		p, err := g.Generate(model.OpSubtract, spec)
		require.NoError(t, err)
		require.LessOrEqual(t, p.Operand2, p.Operand1)
	}
}

func TestSubtractionAllowNegative(t *testing.T) {
	spec := model.DifficultySpec{Operand1: model.DigitRange(1), Operand2: model.DigitRange(2), AllowNegative: true}
	g := NewSeeded(11)
	negative := false
	for i := 0; i < 200; i++ {
		p, err := g.Generate(model.OpSubtract, spec)
		require.NoError(t, err)
		if p.Answer < 0 {
			negative = true
		}
	}
	assert.True(t, negative, "expected at least one negative difference")
}

func TestGenerateDeterministic(t *testing.T) {
	specs, err := Presets(model.LevelIntermediate)
	require.NoError(t, err)
	a := NewSeeded(1234, WithClock(fixedClock))
	b := NewSeeded(1234, WithClock(fixedClock))
	for i := 0; i < 100; i++ {
		pa, errA := a.Next(model.OpMixed, specs)
		pb, errB := b.Next(model.OpMixed, specs)
		require.NoError(t, errA)
		require.NoError(t, errB)
		require.Equal(t, pa, pb)
	}
}

func TestMultiplicationInRange(t *testing.T) {
	spec, err := Preset(model.OpMultiply, model.LevelIntermediate)
	require.NoError(t, err)
	g := NewSeeded(5)
	for i := 0; i < 500; i++ {
		p, err := g.Generate(model.OpMultiply, spec)
		require.NoError(t, err)
		require.True(t, model.DigitRange(2).Contains(p.Operand1))
		require.True(t, model.DigitRange(1).Contains(p.Operand2))
		require.Equal(t, p.Operand1*p.Operand2, p.Answer)
	}
}

func TestNextMixedDelegates(t *testing.T) {
	specs, err := Presets(model.LevelBeginner)
	require.NoError(t, err)
	// Operation index 3 -> div, then divisor 7 and quotient 6.
	g := NewFromRand(scripted(3, 6, 4))
	p, err := g.Next(model.OpMixed, specs)
	require.NoError(t, err)
	assert.Equal(t, model.OpDivide, p.Operation)
	assert.Equal(t, 42, p.Operand1)
	assert.Equal(t, 7, p.Operand2)
}

func TestNextMixedCoversAllOperations(t *testing.T) {
	specs, err := Presets(model.LevelBeginner)
	require.NoError(t, err)
	g := NewSeeded(99)
	seen := map[model.Operation]bool{}
	for i := 0; i < 400; i++ {
		p, err := g.Next(model.OpMixed, specs)
		require.NoError(t, err)
		require.True(t, p.Operation.Concrete())
		seen[p.Operation] = true
	}
	assert.Len(t, seen, len(model.Operations))
}

func TestGenerateRejectsMixed(t *testing.T) {
	_, err := NewSeeded(1).Generate(model.OpMixed, beginner(t, model.OpAdd))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestNextMissingSpec(t *testing.T) {
	_, err := NewSeeded(1).Next(model.OpAdd, model.SpecSet{})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
