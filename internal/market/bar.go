// Package market holds the immutable per-symbol inputs the signal engine reads:
// bars with precomputed indicators and the per-cycle market context.
package market

import "time"

// Bar is one closed bar for a symbol plus the indicators the market-data
// collaborator precomputes for it. Bars are passed by value and never mutated.
type Bar struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    float64   `json:"volume" yaml:"volume"`

	EMA20 float64 `json:"ema20" yaml:"ema20"`
	VWAP  float64 `json:"vwap" yaml:"vwap"`
	AVWAP float64 `json:"avwap" yaml:"avwap"`

	RVOL            float64 `json:"rvol" yaml:"rvol"`
	ZRVOL           float64 `json:"z_rvol" yaml:"z_rvol"`
	ATRPct          float64 `json:"atr_pct" yaml:"atr_pct"`
	SpreadPct       float64 `json:"spread_pct" yaml:"spread_pct"`
	ExpectedSlipPct float64 `json:"expected_slip_pct" yaml:"expected_slip_pct"`
	DepthUSD5bps    float64 `json:"depth_usd_5bps" yaml:"depth_usd_5bps"`

	ImpulseZ              float64 `json:"impulse_z" yaml:"impulse_z"`
	RetraceFromImpulsePct float64 `json:"retrace_from_impulse_pct" yaml:"retrace_from_impulse_pct"`
	ReclaimVWAPClose      bool    `json:"reclaim_vwap_close" yaml:"reclaim_vwap_close"`
	ReclaimVWAPWick       bool    `json:"reclaim_vwap_wick" yaml:"reclaim_vwap_wick"`
	CrossUpEMA20          bool    `json:"cross_up_ema20" yaml:"cross_up_ema20"`
	HoldoutDaysRemaining  int     `json:"holdout_days_remaining" yaml:"holdout_days_remaining"`
	PullbackLowAboveEMA20 bool    `json:"pullback_low_above_ema20" yaml:"pullback_low_above_ema20"`
}

// QuoteVolumeUSD is the bar's traded value in quote currency
func (b Bar) QuoteVolumeUSD() float64 {
	return b.Close * b.Volume
}

// MarketContext is refreshed once per scan cycle and shared read-only across symbols
type MarketContext struct {
	RVOLBTC      float64 `json:"rvol_btc" yaml:"rvol_btc"`
	Breadth      float64 `json:"breadth" yaml:"breadth"` // fraction of universe in uptrend, 0.0-1.0
	MaxSpreadPct float64 `json:"max_spread_pct" yaml:"max_spread_pct"`
	MaxSlipPct   float64 `json:"max_slip_pct" yaml:"max_slip_pct"`
	DepthMinUSD  float64 `json:"depth_min_usd" yaml:"depth_min_usd"`
	ATRMinPct    float64 `json:"atr_min_pct" yaml:"atr_min_pct"`
	ATRMaxPct    float64 `json:"atr_max_pct" yaml:"atr_max_pct"`
}

// Candle is a plain OHLCV record used for higher-timeframe series and history
type Candle struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    float64   `json:"volume" yaml:"volume"`
}

// Closes extracts the close series from candles
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
