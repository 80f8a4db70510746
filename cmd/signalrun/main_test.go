package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/signalrun/internal/engine"
	"github.com/sawpanic/signalrun/internal/persistence"
	"github.com/sawpanic/signalrun/internal/scan"
	"github.com/sawpanic/signalrun/internal/setups"
	"github.com/sawpanic/signalrun/internal/signal"
)

const cycleYAML = `
context:
  rvol_btc: 1.0
  breadth: 0.6
  max_spread_pct: 0.1
  max_slip_pct: 0.1
  depth_min_usd: 100000
  atr_min_pct: 0.5
  atr_max_pct: 6
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
      spread_pct: 0.05
      expected_slip_pct: 0.04
      depth_usd_5bps: 250000
      impulse_z: 0.5
      retrace_from_impulse_pct: 60
      cross_up_ema20: true
  - bar:
      symbol: DOGE/USDT
      open: 0.1
      high: 0.11
      low: 0.09
      close: 0.1
      volume: 10
      vwap: 0.1
      ema20: 0.1
      rvol: 0.2
      atr_pct: 2
`

func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PG_DSN", "")

	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--no-color", "--log-level", "error"))
	return cmd.Execute()
}

func TestEvaluateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cycleYAML), 0o644))

	assert.NoError(t, run(t, "evaluate", "-i", path, "--publish", "--metrics"))
	assert.NoError(t, run(t, "evaluate", "-i", path, "--json"))
	assert.Error(t, run(t, "evaluate"), "input is required")
	assert.Error(t, run(t, "evaluate", "-i", path, "--as-of", "yesterday"))
}

func TestSupportCommands(t *testing.T) {
	assert.NoError(t, run(t, "regime", "--rvol-btc", "0.5", "--breadth", "0.4"))
	assert.NoError(t, run(t, "config", "show"))
	assert.NoError(t, run(t, "config", "check"))
	assert.Error(t, run(t, "history"), "history needs a database")
	assert.Error(t, run(t, "history", "--health"), "health check needs a database")
	assert.Error(t, run(t, "config", "check", "--config", filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestCycleRow(t *testing.T) {
	testCases := []struct {
		name    string
		result  scan.Result
		outcome string
		detail  string
	}{
		{
			name:    "error",
			result:  scan.Result{Symbol: "X", Err: errors.New("vwap: must be finite")},
			outcome: "ERROR",
			detail:  "vwap: must be finite",
		},
		{
			name:    "skipped",
			result:  scan.Result{Symbol: "X", Skipped: scan.SkipRVOL},
			outcome: "SKIP",
			detail:  "prefilter: rvol",
		},
		{
			name: "no_signal",
			result: scan.Result{Symbol: "X", Decision: &engine.Decision{
				Setup: setups.Match{Setup: setups.NONE}, Reason: signal.ReasonNoSetup, Detail: "no setup matched",
			}},
			outcome: "NO_SETUP",
			detail:  "no setup matched",
		},
		{
			name: "signal",
			result: scan.Result{Symbol: "X", Decision: &engine.Decision{
				Setup:  setups.Match{Setup: setups.BRK},
				Signal: &signal.Signal{AuditID: "X-250314-abcdef", Entry: 102, Stop: 98.94, TP1: 105.06, TP1Clamped: true, SizeMultiplier: 0.5},
			}},
			outcome: "SIGNAL",
			detail:  "X-250314-abcdef",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row := cycleRow(tc.result)
			require.Len(t, row, 11)
			assert.Equal(t, tc.outcome, row[1])
			assert.Equal(t, tc.detail, row[10])
		})
	}

	row := cycleRow(testCases[3].result)
	assert.Equal(t, "105.0600*", row[6])
	assert.Equal(t, "x0.50", row[9])
}

func TestRenderHealth(t *testing.T) {
	var buf bytes.Buffer
	renderHealth(&buf, persistence.HealthCheck{
		Healthy:        false,
		Errors:         []string{"ping failed: connection refused"},
		ConnectionPool: map[string]int{"open": 2, "idle": 1},
		ResponseTimeMS: 4,
	})

	out := buf.String()
	assert.Contains(t, out, "unhealthy")
	assert.Contains(t, out, "(4ms)")
	assert.Contains(t, out, "ping failed: connection refused")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("idle")), bytes.Index(buf.Bytes(), []byte("open")))
}
