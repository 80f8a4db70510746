package scan

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBatch = `
context:
  rvol_btc: 1.1
  breadth: 0.62
  max_spread_pct: 0.5
  max_slip_pct: 0.3
  depth_min_usd: 50000
  atr_min_pct: 0.5
  atr_max_pct: 5
as_of: 2025-03-14T15:00:00Z
symbols:
  - bar:
      symbol: BTC/USDT
      open: 100
      high: 103
      low: 99.5
      close: 102
      volume: 5000
      ema20: 101
      vwap: 100.5
      avwap: 100.2
      rvol: 1.5
      z_rvol: 1.2
      atr_pct: 2
      depth_usd_5bps: 250000
      cross_up_ema20: true
    level: 110
  - bar:
      symbol: ETH/USDT
      open: 10
      high: 11
      low: 9
      close: 10.5
      volume: 100
      vwap: .nan
`

func TestReadBatch(t *testing.T) {
	b, err := ReadBatch(strings.NewReader(sampleBatch))
	require.NoError(t, err)

	assert.Equal(t, 0.62, b.Context.Breadth)
	assert.Equal(t, time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC), b.AsOf.UTC())
	require.Len(t, b.Symbols, 2)
	assert.Equal(t, "BTC/USDT", b.Symbols[0].Bar.Symbol)
	assert.True(t, b.Symbols[0].Bar.CrossUpEMA20)
	require.NotNil(t, b.Symbols[0].Level)
	assert.Equal(t, 110.0, *b.Symbols[0].Level)
	assert.Nil(t, b.Symbols[1].Level)
	assert.True(t, math.IsNaN(b.Symbols[1].Bar.VWAP))
}

func TestReadBatchRejects(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"empty", "context:\n  breadth: 0.5\nsymbols: []\n"},
		{"unknown_key", "context:\n  breadth: 0.5\n  colour: red\nsymbols:\n  - bar:\n      symbol: X\n"},
		{"malformed", "symbols: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadBatch(strings.NewReader(tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleBatch), 0o644))

	b, err := LoadBatch(path)
	require.NoError(t, err)
	assert.Len(t, b.Symbols, 2)

	_, err = LoadBatch(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
