package targets

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/signal"
)

func level(v float64) *float64 { return &v }

func TestBuildLongLadder(t *testing.T) {
	b := NewBuilder(config.Default())

	tg, err := b.Build(signal.Long, 100, 95, nil)
	require.NoError(t, err)

	assert.Equal(t, 5.0, tg.R)
	assert.Equal(t, 105.0, tg.TP1)
	assert.Equal(t, 110.0, tg.TP2)
	assert.Equal(t, 115.0, tg.TPFinal)
	assert.Equal(t, Trail{Initial: 1.5, AfterTP1: 1.0, AfterTP2: 0.75}, tg.Trail)
	assert.False(t, tg.Clamped)
	assert.False(t, tg.Rejected)
}

func TestBuildShortLadder(t *testing.T) {
	b := NewBuilder(config.Default())

	tg, err := b.Build(signal.Short, 100, 104, nil)
	require.NoError(t, err)

	assert.Equal(t, 4.0, tg.R)
	assert.Equal(t, 96.0, tg.TP1)
	assert.Equal(t, 92.0, tg.TP2)
	assert.Equal(t, 88.0, tg.TPFinal)
}

func TestBuildSRClampReject(t *testing.T) {
	b := NewBuilder(config.Default())

	tg, err := b.Build(signal.Long, 100, 95, level(101))
	require.NoError(t, err)

	assert.True(t, tg.Clamped)
	assert.InDelta(t, 100.9, tg.TP1, 0.01)
	assert.Less(t, tg.TP1, 101.0)
	assert.True(t, tg.Rejected, "100.9 is below the 101.5 reward floor")
}

func TestBuildSRClampKeeps(t *testing.T) {
	b := NewBuilder(config.Default())

	tg, err := b.Build(signal.Long, 100, 95, level(103))
	require.NoError(t, err)

	assert.True(t, tg.Clamped)
	assert.False(t, tg.Rejected)
	assert.InDelta(t, 102.897, tg.TP1, 1e-9)
	assert.Equal(t, 110.0, tg.TP2)
}

func TestBuildLevelBeyondTP1Ignored(t *testing.T) {
	b := NewBuilder(config.Default())

	tg, err := b.Build(signal.Long, 100, 95, level(108))
	require.NoError(t, err)

	assert.False(t, tg.Clamped)
	assert.Equal(t, 105.0, tg.TP1)
}

func TestBuildShortSupportClamp(t *testing.T) {
	b := NewBuilder(config.Default())

	tg, err := b.Build(signal.Short, 100, 105, level(99))
	require.NoError(t, err)
	assert.True(t, tg.Clamped)
	assert.InDelta(t, 99.099, tg.TP1, 1e-9)
	assert.True(t, tg.Rejected)

	tg, err = b.Build(signal.Short, 100, 105, level(97))
	require.NoError(t, err)
	assert.True(t, tg.Clamped)
	assert.False(t, tg.Rejected)
}

func TestBuildDegenerateInputs(t *testing.T) {
	b := NewBuilder(config.Default())

	testCases := []struct {
		name  string
		side  signal.Side
		entry float64
		stop  float64
		level *float64
		field string
	}{
		{"entry_equals_stop", signal.Long, 100, 100, nil, "stop"},
		{"stop_above_long_entry", signal.Long, 100, 101, nil, "stop"},
		{"stop_below_short_entry", signal.Short, 100, 99, nil, "stop"},
		{"nan_entry", signal.Long, math.NaN(), 95, nil, "entry"},
		{"zero_entry", signal.Long, 0, -1, nil, "entry"},
		{"inf_stop", signal.Long, 100, math.Inf(-1), nil, "stop"},
		{"bad_level", signal.Long, 100, 95, level(math.Inf(1)), "level"},
		{"unknown_side", signal.Side("flat"), 100, 95, nil, "side"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(tc.side, tc.entry, tc.stop, tc.level)
			require.Error(t, err)

			var degenerate *DegenerateInputError
			require.True(t, errors.As(err, &degenerate))
			assert.Equal(t, tc.field, degenerate.Field)
		})
	}
}

func TestStopFor(t *testing.T) {
	b := NewBuilder(config.Default())

	assert.InDelta(t, 97.0, b.StopFor(signal.Long, 100, 2), 1e-9)
	assert.InDelta(t, 103.0, b.StopFor(signal.Short, 100, 2), 1e-9)
	assert.Equal(t, 100.0, b.StopFor(signal.Long, 100, 0))
}

func TestBuildZeroRewardFloorStillRejectsFlatTP1(t *testing.T) {
	cfg := config.Default()
	cfg.SRMinRewardPct = 0
	cfg.SRClampBufferPct = 0
	b := NewBuilder(cfg)

	testCases := []struct {
		name     string
		side     signal.Side
		stop     float64
		level    float64
		rejected bool
	}{
		{"long_level_at_entry", signal.Long, 95, 100, true},
		{"long_level_just_above", signal.Long, 95, 100.5, false},
		{"short_level_at_entry", signal.Short, 105, 100, true},
		{"short_level_just_below", signal.Short, 105, 99.5, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tg, err := b.Build(tc.side, 100, tc.stop, level(tc.level))
			require.NoError(t, err)
			assert.True(t, tg.Clamped)
			assert.Equal(t, tc.rejected, tg.Rejected)
			if !tc.rejected {
				assert.Greater(t, (tg.TP1-100)*tc.side.Sign(), 0.0)
			}
		})
	}
}
