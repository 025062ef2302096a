package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/anzan/internal/model"
)

func TestPresetTable(t *testing.T) {
	tests := []struct {
		op       model.Operation
		level    model.Level
		operand1 model.Range
		operand2 model.Range
		limit    time.Duration
	}{
		{model.OpAdd, model.LevelBeginner, model.DigitRange(1), model.DigitRange(1), 5 * time.Second},
		{model.OpSubtract, model.LevelIntermediate, model.DigitRange(2), model.DigitRange(2), 15 * time.Second},
		{model.OpMultiply, model.LevelIntermediate, model.DigitRange(2), model.DigitRange(1), 15 * time.Second},
		{model.OpMultiply, model.LevelAdvanced, model.DigitRange(2), model.DigitRange(2), 25 * time.Second},
		{model.OpDivide, model.LevelBeginner, model.DigitRange(2), model.DigitRange(1), 10 * time.Second},
		{model.OpDivide, model.LevelAdvanced, model.DigitRange(3), model.DigitRange(2), 30 * time.Second},
	}
	for _, tt := range tests {
		spec, err := Preset(tt.op, tt.level)
		require.NoError(t, err)
		assert.Equal(t, tt.operand1, spec.Operand1, "%s/%s", tt.op, tt.level)
		assert.Equal(t, tt.operand2, spec.Operand2, "%s/%s", tt.op, tt.level)
		assert.Equal(t, tt.limit, spec.TimeLimit, "%s/%s", tt.op, tt.level)
	}
}

func TestPresetsAreValid(t *testing.T) {
	for _, level := range model.Levels {
		set, err := Presets(level)
		require.NoError(t, err)
		require.NoError(t, set.Validate(model.OpMixed))
	}
}

func TestPresetUnknownLevel(t *testing.T) {
	_, err := Preset(model.OpAdd, model.LevelCustom)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestOverrideTimeLimit(t *testing.T) {
	set, err := Presets(model.LevelBeginner)
	require.NoError(t, err)
	out := OverrideTimeLimit(set, 0)
	for _, op := range model.Operations {
		assert.Zero(t, out[op].TimeLimit)
		assert.NotZero(t, set[op].TimeLimit, "input must not be modified")
	}
}
