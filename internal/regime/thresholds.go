package regime

import (
	"fmt"

	"github.com/sawpanic/signalrun/internal/config"
)

// Thresholds holds the regime-specific admission and acceptance levels
type Thresholds struct {
	RVOLMin           float64 `json:"rvol_min" yaml:"rvol_min"`
	MinBarQuoteVolUSD float64 `json:"min_bar_quote_vol_usd" yaml:"min_bar_quote_vol_usd"`
	ScoreCutoff       float64 `json:"score_cutoff" yaml:"score_cutoff"`
}

// ThresholdRouter selects thresholds based on regime
type ThresholdRouter struct {
	trend Thresholds
	chop  Thresholds
}

// NewThresholdRouter builds the two regime variants from the configuration
func NewThresholdRouter(cfg *config.Config) *ThresholdRouter {
	return &ThresholdRouter{
		trend: Thresholds{
			RVOLMin:           cfg.RVOLMinTrend,
			MinBarQuoteVolUSD: cfg.MinBarQuoteVolUSDTrend,
			ScoreCutoff:       cfg.ScoreCutoffTrend,
		},
		chop: Thresholds{
			RVOLMin:           cfg.RVOLMinChop,
			MinBarQuoteVolUSD: cfg.MinBarQuoteVolUSDChop,
			ScoreCutoff:       cfg.ScoreCutoffChop,
		},
	}
}

// Select returns the thresholds for the given regime
func (tr *ThresholdRouter) Select(r Regime) Thresholds {
	if r == Trend {
		return tr.trend
	}
	return tr.chop
}

// Describe returns a human-readable description of thresholds for a regime
func (tr *ThresholdRouter) Describe(r Regime) string {
	th := tr.Select(r)
	return fmt.Sprintf("Regime: %s | RVOL: ≥%.2f | Bar quote vol: ≥$%.0fk | Score cutoff: ≥%.1f",
		r, th.RVOLMin, th.MinBarQuoteVolUSD/1000, th.ScoreCutoff)
}
