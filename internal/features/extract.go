// Package features derives the typed feature set the router, scorer and guards
// consume from one bar and the cycle's market context.
package features

import (
	"math"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/market"
	"github.com/sawpanic/signalrun/internal/regime"
)

// FeatureSet is produced fresh per (symbol, bar) and has no identity beyond
// the call that produced it
type FeatureSet struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`

	RVOL  float64 `json:"rvol"`
	ZRVOL float64 `json:"z_rvol"`

	Align          bool `json:"align"`
	CloseLEOpen    bool `json:"close_le_open"`
	BreakAboveEMA  bool `json:"break_above_ema"`
	ReclaimVWAP    bool `json:"reclaim_vwap"`
	WickReclaim    bool `json:"wick_reclaim"`
	ImpulseBar     bool `json:"impulse_bar"`
	ShallowRetrace bool `json:"shallow_retrace"`

	// Bar geometry used by the sweep and range matchers
	LowerWickPct    float64 `json:"lower_wick_pct"`
	BandDistancePct float64 `json:"band_distance_pct"`
	Bounce          bool    `json:"bounce"`

	// Admission flags for the caller-side pre-filter
	RVOLOk         bool    `json:"rvol_ok"`
	QuoteVolumeUSD float64 `json:"quote_volume_usd"`
	LiquidityOk    bool    `json:"liquidity_ok"`

	// Guard flags
	SpreadBad   bool    `json:"spread_bad"`
	SlippageBad bool    `json:"slippage_bad"`
	DepthBad    bool    `json:"depth_bad"`
	Holdout     int     `json:"holdout"`
	ATROutside  bool    `json:"atr_outside"`
	ATRPct      float64 `json:"atr_pct"`
}

// Extract derives the feature set. It never fails; malformed bars are
// rejected by market.Bar.Validate before extraction.
func Extract(bar market.Bar, mc market.MarketContext, th regime.Thresholds, cfg *config.Config) FeatureSet {
	price := bar.Close
	shallow := bar.RetraceFromImpulsePct >= 0 &&
		bar.RetraceFromImpulsePct <= cfg.ImpPBMaxRetracePct &&
		bar.PullbackLowAboveEMA20

	fs := FeatureSet{
		Symbol: bar.Symbol,
		Price:  price,
		RVOL:   bar.RVOL,
		ZRVOL:  bar.ZRVOL,

		Align:          (price > bar.EMA20 && bar.EMA20 > bar.VWAP) || (price > bar.VWAP && bar.VWAP > bar.EMA20),
		CloseLEOpen:    bar.Close <= bar.Open,
		BreakAboveEMA:  bar.CrossUpEMA20,
		ReclaimVWAP:    bar.ReclaimVWAPClose,
		WickReclaim:    bar.ReclaimVWAPWick,
		ImpulseBar:     bar.ImpulseZ >= cfg.RVOLSpikeZ,
		ShallowRetrace: shallow,

		QuoteVolumeUSD: bar.QuoteVolumeUSD(),

		SpreadBad:   bar.SpreadPct > mc.MaxSpreadPct,
		SlippageBad: bar.ExpectedSlipPct > mc.MaxSlipPct,
		DepthBad:    bar.DepthUSD5bps < mc.DepthMinUSD,
		Holdout:     bar.HoldoutDaysRemaining,
		ATROutside:  bar.ATRPct < mc.ATRMinPct || bar.ATRPct > mc.ATRMaxPct,
		ATRPct:      bar.ATRPct,
	}

	if price > 0 {
		fs.LowerWickPct = (math.Min(bar.Open, bar.Close) - bar.Low) / price * 100
	}
	if bar.VWAP > 0 {
		fs.BandDistancePct = math.Abs(price-bar.VWAP) / bar.VWAP * 100
	}
	fs.Bounce = bar.Close > bar.Open && fs.LowerWickPct > 0

	fs.RVOLOk = bar.RVOL >= th.RVOLMin
	fs.LiquidityOk = fs.QuoteVolumeUSD >= th.MinBarQuoteVolUSD

	return fs
}

// LiquidityGuardsClean reports whether none of the book-quality flags fired
func (fs FeatureSet) LiquidityGuardsClean() bool {
	return !fs.SpreadBad && !fs.SlippageBad && !fs.DepthBad
}
