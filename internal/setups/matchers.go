package setups

import (
	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/features"
)

// Breakout fires on an EMA20 cross-up with trend confluence
type Breakout struct{}

func (Breakout) Name() Setup { return BRK }

func (Breakout) Match(fs features.FeatureSet) (Style, bool) {
	return StyleEMABreakout, fs.BreakAboveEMA && fs.Align
}

// SweepRule parameterizes the stop-hunt geometry: a lower wick that pierced
// VWAP and closed back above it, long enough to count as a sweep.
//
// The default leaves RequireMisaligned off. Precedence already sends an
// aligned bar that breaks the EMA to BRK, so the aligned reclaims left for
// SWEEP are pullbacks that hunted stops without breaking out; requiring
// misalignment would demote them to PULL or drop them.
type SweepRule struct {
	MinWickPct        float64 // lower wick as % of close
	RequireMisaligned bool    // only accept sweeps without trend confluence
}

// SweepRuleFromConfig reads the rule from SWEEP_MIN_WICK_PCT and SWEEP_REQUIRE_MISALIGNED
func SweepRuleFromConfig(cfg *config.Config) SweepRule {
	return SweepRule{
		MinWickPct:        cfg.SweepMinWickPct,
		RequireMisaligned: cfg.SweepRequireMisaligned,
	}
}

// Sweep fires on a wick reclaim that satisfies its rule
type Sweep struct {
	Rule SweepRule
}

func (Sweep) Name() Setup { return SWEEP }

func (s Sweep) Match(fs features.FeatureSet) (Style, bool) {
	if !fs.WickReclaim || fs.LowerWickPct < s.Rule.MinWickPct {
		return StyleNone, false
	}
	if s.Rule.RequireMisaligned && fs.Align {
		return StyleNone, false
	}
	return StyleAVWAPReclaim, true
}

// Pullback fires on a VWAP reclaim close or a shallow retrace of an impulse bar
type Pullback struct{}

func (Pullback) Name() Setup { return PULL }

func (Pullback) Match(fs features.FeatureSet) (Style, bool) {
	switch {
	case fs.ReclaimVWAP:
		return StyleAVWAPReclaim, true
	case fs.ImpulseBar && fs.ShallowRetrace:
		return StyleImpulsePB, true
	}
	return StyleNone, false
}

// Range is the fallback: a bounce inside a band around VWAP with clean book guards
type Range struct {
	BandPct float64
}

func (Range) Name() Setup { return RANGE }

func (r Range) Match(fs features.FeatureSet) (Style, bool) {
	return StyleNone, fs.BandDistancePct <= r.BandPct && fs.Bounce && fs.LiquidityGuardsClean()
}
