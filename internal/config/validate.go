package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate checks every option against its valid range and reports all
// violations at once
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.RegimeMode {
	case ModeAuto, ModeTrend, ModeChop:
	default:
		add("regime_mode %q invalid (must be auto, trend or chop)", c.RegimeMode)
	}

	inRange := func(name string, v, lo, hi float64) {
		if math.IsNaN(v) || v < lo || v > hi {
			add("%s %.4g outside [%g, %g]", name, v, lo, hi)
		}
	}
	positive := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			add("%s must be > 0, got %.4g", name, v)
		}
	}

	inRange("regime_chop_rvol", c.RegimeChopRVOL, 0, 10)
	inRange("regime_chop_breadth", c.RegimeChopBreadth, 0, 1)

	inRange("rvol_min_trend", c.RVOLMinTrend, 0, 20)
	inRange("rvol_min_chop", c.RVOLMinChop, 0, 20)
	inRange("min_bar_quote_vol_usd_trend", c.MinBarQuoteVolUSDTrend, 0, 1e12)
	inRange("min_bar_quote_vol_usd_chop", c.MinBarQuoteVolUSDChop, 0, 1e12)
	inRange("score_cutoff_trend", c.ScoreCutoffTrend, 0, 200)
	inRange("score_cutoff_chop", c.ScoreCutoffChop, 0, 200)

	inRange("rvol_spike_z", c.RVOLSpikeZ, -10, 10)
	inRange("exc_position_size_mult", c.ExcPositionSizeMult, 0, 1)
	inRange("reclaim_wick_size_mult", c.ReclaimWickSizeMult, 0, 1)
	if c.ImpPBLookback < 2 || c.ImpPBLookback > 500 {
		add("imp_pb_lookback %d outside [2, 500]", c.ImpPBLookback)
	}
	inRange("imp_pb_max_retrace_pct", c.ImpPBMaxRetracePct, 0, 100)

	inRange("sweep_min_wick_pct", c.SweepMinWickPct, 0, 50)
	inRange("range_band_pct", c.RangeBandPct, 0, 50)

	positive("tp1_r", c.TP1R)
	positive("tp2_r", c.TP2R)
	positive("tp_final_r", c.TPFinalR)
	if c.TP1R > c.TP2R || c.TP2R > c.TPFinalR {
		add("r-multiples must satisfy tp1_r <= tp2_r <= tp_final_r (got %.2f, %.2f, %.2f)", c.TP1R, c.TP2R, c.TPFinalR)
	}
	positive("stop_atr_mult", c.StopATRMult)
	positive("trail_atr_mult", c.TrailATRMult)
	positive("trail_atr_mult_after_tp1", c.TrailATRMultAfterTP1)
	positive("trail_atr_mult_after_tp2", c.TrailATRMultAfterTP2)
	inRange("sr_clamp_buffer_pct", c.SRClampBufferPct, 0, 10)
	inRange("sr_min_reward_pct", c.SRMinRewardPct, 0, 100)

	if c.MTFEMAPeriod < 2 || c.MTFEMAPeriod > 500 {
		add("mtf_ema_period %d outside [2, 500]", c.MTFEMAPeriod)
	}
	if c.MTFSlopeLookback < 2 || c.MTFSlopeLookback > 500 {
		add("mtf_slope_lookback %d outside [2, 500]", c.MTFSlopeLookback)
	}

	if c.Runtime.ScanWorkers < 1 || c.Runtime.ScanWorkers > 256 {
		add("scan_workers %d outside [1, 256]", c.Runtime.ScanWorkers)
	}
	if c.Runtime.DedupTTL <= 0 {
		add("dedup_ttl must be > 0, got %s", c.Runtime.DedupTTL)
	}
	positive("notify_rps", c.Runtime.NotifyRPS)
	if c.Runtime.NotifyBurst < 1 {
		add("notify_burst must be >= 1, got %d", c.Runtime.NotifyBurst)
	}
	if c.Runtime.StoreTimeout <= 0 {
		add("store_timeout must be > 0, got %s", c.Runtime.StoreTimeout)
	}
	if c.Runtime.MaxBarAge < 0 {
		add("max_bar_age must be >= 0, got %s", c.Runtime.MaxBarAge)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
