package config

import (
	"time"
)

// Regime modes accepted by REGIME_MODE
const (
	ModeAuto  = "auto"
	ModeTrend = "trend"
	ModeChop  = "chop"
)

// Config is the immutable option snapshot shared by every engine component.
// Field tags use the lower-case option names; the matching environment
// variable is the upper-case form (regime_mode -> REGIME_MODE).
type Config struct {
	// Regime detection
	RegimeMode        string  `mapstructure:"regime_mode" yaml:"regime_mode"`
	RegimeChopRVOL    float64 `mapstructure:"regime_chop_rvol" yaml:"regime_chop_rvol"`
	RegimeChopBreadth float64 `mapstructure:"regime_chop_breadth" yaml:"regime_chop_breadth"`

	// Regime thresholds
	RVOLMinTrend           float64 `mapstructure:"rvol_min_trend" yaml:"rvol_min_trend"`
	RVOLMinChop            float64 `mapstructure:"rvol_min_chop" yaml:"rvol_min_chop"`
	MinBarQuoteVolUSDTrend float64 `mapstructure:"min_bar_quote_vol_usd_trend" yaml:"min_bar_quote_vol_usd_trend"`
	MinBarQuoteVolUSDChop  float64 `mapstructure:"min_bar_quote_vol_usd_chop" yaml:"min_bar_quote_vol_usd_chop"`
	ScoreCutoffTrend       float64 `mapstructure:"score_cutoff_trend" yaml:"score_cutoff_trend"`
	ScoreCutoffChop        float64 `mapstructure:"score_cutoff_chop" yaml:"score_cutoff_chop"`

	// Features, scoring, guards
	RVOLSpikeZ               float64 `mapstructure:"rvol_spike_z" yaml:"rvol_spike_z"`
	AllowATROutsideWithSpike bool    `mapstructure:"allow_atr_outside_with_spike" yaml:"allow_atr_outside_with_spike"`
	ExcPositionSizeMult      float64 `mapstructure:"exc_position_size_mult" yaml:"exc_position_size_mult"`
	ReclaimUseWick           bool    `mapstructure:"reclaim_use_wick" yaml:"reclaim_use_wick"`
	ReclaimWickSizeMult      float64 `mapstructure:"reclaim_wick_size_mult" yaml:"reclaim_wick_size_mult"`
	ImpPBLookback            int     `mapstructure:"imp_pb_lookback" yaml:"imp_pb_lookback"`
	ImpPBMaxRetracePct       float64 `mapstructure:"imp_pb_max_retrace_pct" yaml:"imp_pb_max_retrace_pct"`
	ScoreClamp               bool    `mapstructure:"score_clamp" yaml:"score_clamp"`

	// Setup matchers
	SweepMinWickPct        float64 `mapstructure:"sweep_min_wick_pct" yaml:"sweep_min_wick_pct"`
	SweepRequireMisaligned bool    `mapstructure:"sweep_require_misaligned" yaml:"sweep_require_misaligned"`
	RangeBandPct           float64 `mapstructure:"range_band_pct" yaml:"range_band_pct"`

	// Targets
	TP1R                 float64 `mapstructure:"tp1_r" yaml:"tp1_r"`
	TP2R                 float64 `mapstructure:"tp2_r" yaml:"tp2_r"`
	TPFinalR             float64 `mapstructure:"tp_final_r" yaml:"tp_final_r"`
	StopATRMult          float64 `mapstructure:"stop_atr_mult" yaml:"stop_atr_mult"`
	TrailATRMult         float64 `mapstructure:"trail_atr_mult" yaml:"trail_atr_mult"`
	TrailATRMultAfterTP1 float64 `mapstructure:"trail_atr_mult_after_tp1" yaml:"trail_atr_mult_after_tp1"`
	TrailATRMultAfterTP2 float64 `mapstructure:"trail_atr_mult_after_tp2" yaml:"trail_atr_mult_after_tp2"`
	SRClampBufferPct     float64 `mapstructure:"sr_clamp_buffer_pct" yaml:"sr_clamp_buffer_pct"`
	SRMinRewardPct       float64 `mapstructure:"sr_min_reward_pct" yaml:"sr_min_reward_pct"`

	// Multi-timeframe filter
	MTFEnabled       bool `mapstructure:"mtf_enabled" yaml:"mtf_enabled"`
	MTFEMAPeriod     int  `mapstructure:"mtf_ema_period" yaml:"mtf_ema_period"`
	MTFSlopeLookback int  `mapstructure:"mtf_slope_lookback" yaml:"mtf_slope_lookback"`

	Runtime Runtime `mapstructure:",squash" yaml:",inline"`
}

// Runtime holds process-level options used by the CLI and collaborator
// adapters. The engine never reads them.
type Runtime struct {
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	ScanWorkers  int           `mapstructure:"scan_workers" yaml:"scan_workers"`
	RedisAddr    string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	PostgresDSN  string        `mapstructure:"pg_dsn" yaml:"pg_dsn"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl" yaml:"dedup_ttl"`
	NotifyRPS    float64       `mapstructure:"notify_rps" yaml:"notify_rps"`
	NotifyBurst  int           `mapstructure:"notify_burst" yaml:"notify_burst"`
	StoreTimeout time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
	MaxBarAge    time.Duration `mapstructure:"max_bar_age" yaml:"max_bar_age"` // 0 disables the freshness gate
}

// Default returns production defaults for every recognized option
func Default() *Config {
	return &Config{
		RegimeMode:        ModeAuto,
		RegimeChopRVOL:    0.75,
		RegimeChopBreadth: 0.55,

		RVOLMinTrend:           1.0,
		RVOLMinChop:            1.3,
		MinBarQuoteVolUSDTrend: 50_000,
		MinBarQuoteVolUSDChop:  100_000,
		ScoreCutoffTrend:       65,
		ScoreCutoffChop:        72,

		RVOLSpikeZ:               1.0,
		AllowATROutsideWithSpike: false,
		ExcPositionSizeMult:      0.5,
		ReclaimUseWick:           true,
		ReclaimWickSizeMult:      0.5,
		ImpPBLookback:            12,
		ImpPBMaxRetracePct:       38.2,
		ScoreClamp:               false,

		SweepMinWickPct:        0.25,
		SweepRequireMisaligned: false,
		RangeBandPct:           1.0,

		TP1R:                 1.0,
		TP2R:                 2.0,
		TPFinalR:             3.0,
		StopATRMult:          1.5,
		TrailATRMult:         1.5,
		TrailATRMultAfterTP1: 1.0,
		TrailATRMultAfterTP2: 0.75,
		SRClampBufferPct:     0.1,
		SRMinRewardPct:       1.5,

		MTFEnabled:       true,
		MTFEMAPeriod:     20,
		MTFSlopeLookback: 10,

		Runtime: Runtime{
			LogLevel:     "info",
			ScanWorkers:  8,
			DedupTTL:     24 * time.Hour,
			NotifyRPS:    1,
			NotifyBurst:  3,
			StoreTimeout: 5 * time.Second,
		},
	}
}
