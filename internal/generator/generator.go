// Package generator builds arithmetic problems.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/anzan/internal/model"
)

// maxDivisorAttempts bounds random divisor resampling before falling back to a scan.
const maxDivisorAttempts = 32

// Generator produces randomized problems from a caller-owned random source.
type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock sets the clock used for Problem.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New returns a Generator seeded with the current time.
func New(opts ...Option) *Generator {
	return NewSeeded(time.Now().UnixNano(), opts...)
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64, opts ...Option) *Generator {
	return NewFromRand(rand.New(rand.NewSource(seed)), opts...)
}

// NewFromRand wraps an existing random source.
func NewFromRand(rnd *rand.Rand, opts ...Option) *Generator {
	g := &Generator{rnd: rnd, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds one problem for a concrete operation.
func (g *Generator) Generate(op model.Operation, spec model.DifficultySpec) (model.Problem, error) {
	if err := spec.Validate(op); err != nil {
		return model.Problem{}, err
	}
	var a, b, answer int
	switch op {
	case model.OpAdd:
		a, b = g.sample(spec.Operand1), g.sample(spec.Operand2)
		answer = a + b
	case model.OpSubtract:
		a, b = g.subtract(spec)
		answer = a - b
	case model.OpMultiply:
		a, b = g.sample(spec.Operand1), g.sample(spec.Operand2)
		answer = a * b
	case model.OpDivide:
		divisor, quotient, err := g.divide(spec)
		if err != nil {
			return model.Problem{}, err
		}
		a, b, answer = divisor*quotient, divisor, quotient
	}
	return model.Problem{
		Operation: op,
		Operand1:  a,
		Operand2:  b,
		Answer:    answer,
		TimeLimit: spec.TimeLimit,
		CreatedAt: g.now(),
	}, nil
}

// Next resolves op against specs, picking uniformly among all operations for OpMixed.
func (g *Generator) Next(op model.Operation, specs model.SpecSet) (model.Problem, error) {
	if op == model.OpMixed {
		op = model.Operations[g.rnd.Intn(len(model.Operations))]
	}
	spec, ok := specs[op]
	if !ok {
		return model.Problem{}, fmt.Errorf("%w: no difficulty for %s", model.ErrConfiguration, op)
	}
	return g.Generate(op, spec)
}

func (g *Generator) sample(r model.Range) int {
	return g.between(r.Min, r.Max)
}

func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.Intn(hi-lo+1)
}

func (g *Generator) subtract(spec model.DifficultySpec) (int, int) {
	a := g.sample(spec.Operand1)
	if spec.AllowNegative {
		return a, g.sample(spec.Operand2)
	}
	hi := spec.Operand2.Max
	if a < hi {
		hi = a
	}
	if hi < 1 {
		// Only reachable with a zero minuend; the difference is then 0.
		return a, a
	}
	return a, g.between(1, hi)
}

func (g *Generator) divide(spec model.DifficultySpec) (divisor, quotient int, err error) {
	for attempt := 0; attempt < maxDivisorAttempts; attempt++ {
		d := g.sample(spec.Operand2)
		lo, hi := model.QuotientBounds(spec.Operand1, d)
		if lo <= hi {
			return d, g.between(lo, hi), nil
		}
	}
	candidates := model.FeasibleDivisors(spec.Operand1, spec.Operand2, 0)
	if len(candidates) == 0 {
		return 0, 0, fmt.Errorf("%w: div: no exact division in %s ÷ %s", model.ErrConfiguration, spec.Operand1, spec.Operand2)
	}
	d := candidates[g.rnd.Intn(len(candidates))]
	lo, hi := model.QuotientBounds(spec.Operand1, d)
	return d, g.between(lo, hi), nil
}
