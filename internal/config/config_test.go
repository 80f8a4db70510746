package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signalrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeAuto, cfg.RegimeMode)
	assert.Equal(t, 0.75, cfg.RegimeChopRVOL)
	assert.Equal(t, 0.55, cfg.RegimeChopBreadth)
	assert.Equal(t, 1.0, cfg.RVOLSpikeZ)
	assert.Equal(t, 0.5, cfg.ExcPositionSizeMult)
	assert.Equal(t, 0.5, cfg.ReclaimWickSizeMult)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
regime_mode: chop
score_cutoff_chop: 80
allow_atr_outside_with_spike: true
dedup_ttl: 12h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeChop, cfg.RegimeMode)
	assert.Equal(t, 80.0, cfg.ScoreCutoffChop)
	assert.True(t, cfg.AllowATROutsideWithSpike)
	assert.Equal(t, 12*time.Hour, cfg.Runtime.DedupTTL)
	assert.Equal(t, 65.0, cfg.ScoreCutoffTrend, "untouched options keep defaults")
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "tp1_r: 1.2\n")
	t.Setenv("TP1_R", "1.5")
	t.Setenv("REGIME_MODE", "trend")
	t.Setenv("RECLAIM_USE_WICK", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.TP1R)
	assert.Equal(t, ModeTrend, cfg.RegimeMode)
	assert.False(t, cfg.ReclaimUseWick)
}

func TestLoadRejectsUnparseableValues(t *testing.T) {
	t.Setenv("RVOL_SPIKE_Z", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "score_cutof_trend: 70\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := Default()
	cfg.RegimeMode = "sideways"
	cfg.RegimeChopBreadth = 1.5
	cfg.TP1R = 3
	cfg.TP2R = 2
	cfg.Runtime.ScanWorkers = 0

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "regime_mode")
	assert.Contains(t, msg, "regime_chop_breadth")
	assert.Contains(t, msg, "tp1_r <= tp2_r")
	assert.Contains(t, msg, "scan_workers")
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.ScoreClamp = true

	out, err := cfg.YAML()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, true, decoded["score_clamp"])
	assert.Equal(t, "auto", decoded["regime_mode"])
	assert.Contains(t, decoded, "scan_workers", "runtime options are inlined")
}
