package generator

import (
	"fmt"
	"time"

	"github.com/verte-zerg/anzan/internal/model"
)

type preset struct {
	digits1, digits2 int
	limit            time.Duration
}

var presets = map[model.Operation]map[model.Level]preset{
	model.OpAdd: {
		model.LevelBeginner:     {1, 1, 5 * time.Second},
		model.LevelIntermediate: {2, 2, 15 * time.Second},
		model.LevelAdvanced:     {3, 3, 25 * time.Second},
	},
	model.OpSubtract: {
		model.LevelBeginner:     {1, 1, 5 * time.Second},
		model.LevelIntermediate: {2, 2, 15 * time.Second},
		model.LevelAdvanced:     {3, 3, 25 * time.Second},
	},
	model.OpMultiply: {
		model.LevelBeginner:     {1, 1, 5 * time.Second},
		model.LevelIntermediate: {2, 1, 15 * time.Second},
		model.LevelAdvanced:     {2, 2, 25 * time.Second},
	},
	model.OpDivide: {
		model.LevelBeginner:     {2, 1, 10 * time.Second},
		model.LevelIntermediate: {3, 1, 20 * time.Second},
		model.LevelAdvanced:     {3, 2, 30 * time.Second},
	},
}

// Preset returns the built-in difficulty for op at level.
func Preset(op model.Operation, level model.Level) (model.DifficultySpec, error) {
	byLevel, ok := presets[op]
	if !ok {
		return model.DifficultySpec{}, fmt.Errorf("%w: no presets for %q", model.ErrConfiguration, op)
	}
	p, ok := byLevel[level]
	if !ok {
		return model.DifficultySpec{}, fmt.Errorf("%w: no %q preset for %s", model.ErrConfiguration, level, op)
	}
	return model.DifficultySpec{
		Operand1:  model.DigitRange(p.digits1),
		Operand2:  model.DigitRange(p.digits2),
		TimeLimit: p.limit,
	}, nil
}

// Presets returns the difficulty for every concrete operation at level.
func Presets(level model.Level) (model.SpecSet, error) {
	set := make(model.SpecSet, len(model.Operations))
	for _, op := range model.Operations {
		spec, err := Preset(op, level)
		if err != nil {
			return nil, err
		}
		set[op] = spec
	}
	return set, nil
}

// OverrideTimeLimit replaces the time limit on every spec. Zero removes the limit.
func OverrideTimeLimit(set model.SpecSet, limit time.Duration) model.SpecSet {
	out := make(model.SpecSet, len(set))
	for op, spec := range set {
		spec.TimeLimit = limit
		out[op] = spec
	}
	return out
}
