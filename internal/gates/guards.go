// Package gates holds the hard liquidity and volatility guards a routed setup
// must clear, and the position-size multiplier derived from how it cleared them.
package gates

import (
	"fmt"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/features"
)

// Guard names, in evaluation order. They double as the GUARD_FAIL suffix.
const (
	GuardSpread   = "spread"
	GuardSlippage = "slippage"
	GuardDepth    = "depth"
	GuardHoldout  = "holdout"
	GuardATRBand  = "atr_band"
)

// GateCheck is one guard's outcome
type GateCheck struct {
	Name        string      `json:"name"`
	Passed      bool        `json:"passed"`
	Value       interface{} `json:"value"`
	Threshold   interface{} `json:"threshold"`
	Description string      `json:"description"`
}

// GuardResult contains the evaluation results for all guards
type GuardResult struct {
	Symbol         string       `json:"symbol"`
	Passed         bool         `json:"passed"`
	FailedGuard    string       `json:"failed_guard,omitempty"`
	ExceptionTaken bool         `json:"exception_taken"`
	Checks         []*GateCheck `json:"checks"`
	FailureReasons []string     `json:"failure_reasons"`
	PassedGuards   []string     `json:"passed_guards"`
}

// GuardEvaluator applies the guards to a feature set. Guards are evaluated
// independently of the score; a failing guard rejects regardless of it.
type GuardEvaluator struct {
	cfg *config.Config
}

// NewGuardEvaluator creates a guard evaluator bound to the configuration snapshot
func NewGuardEvaluator(cfg *config.Config) *GuardEvaluator {
	return &GuardEvaluator{cfg: cfg}
}

// Evaluate runs every guard and records each outcome. FailedGuard names the
// first failure in evaluation order.
func (ge *GuardEvaluator) Evaluate(fs features.FeatureSet) *GuardResult {
	result := &GuardResult{
		Symbol:         fs.Symbol,
		FailureReasons: []string{},
		PassedGuards:   []string{},
	}

	checks := []*GateCheck{
		{
			Name:        GuardSpread,
			Passed:      !fs.SpreadBad,
			Value:       fs.SpreadBad,
			Threshold:   false,
			Description: "Spread within cycle limit",
		},
		{
			Name:        GuardSlippage,
			Passed:      !fs.SlippageBad,
			Value:       fs.SlippageBad,
			Threshold:   false,
			Description: "Expected slippage within cycle limit",
		},
		{
			Name:        GuardDepth,
			Passed:      !fs.DepthBad,
			Value:       fs.DepthBad,
			Threshold:   false,
			Description: "Depth within 5bps meets cycle minimum",
		},
		{
			Name:        GuardHoldout,
			Passed:      fs.Holdout <= 0,
			Value:       fs.Holdout,
			Threshold:   0,
			Description: fmt.Sprintf("Holdout %d days remaining ≤ 0", fs.Holdout),
		},
		ge.evaluateATRBand(fs, result),
	}

	for _, check := range checks {
		result.Checks = append(result.Checks, check)
		if check.Passed {
			result.PassedGuards = append(result.PassedGuards, check.Name)
			continue
		}
		if result.FailedGuard == "" {
			result.FailedGuard = check.Name
		}
		result.FailureReasons = append(result.FailureReasons, fmt.Sprintf("%s: %s", check.Name, check.Description))
	}

	result.Passed = result.FailedGuard == ""
	result.ExceptionTaken = result.ExceptionTaken && result.Passed

	return result
}

// evaluateATRBand is the one tolerated exception: an ATR outside the band
// passes only on a volume spike with ALLOW_ATR_OUTSIDE_WITH_SPIKE enabled
func (ge *GuardEvaluator) evaluateATRBand(fs features.FeatureSet, result *GuardResult) *GateCheck {
	check := &GateCheck{
		Name:        GuardATRBand,
		Passed:      true,
		Value:       fs.ATRPct,
		Threshold:   "inside band",
		Description: fmt.Sprintf("ATR %.2f%% inside band", fs.ATRPct),
	}
	if !fs.ATROutside {
		return check
	}

	if ge.cfg.AllowATROutsideWithSpike && fs.ZRVOL >= ge.cfg.RVOLSpikeZ {
		result.ExceptionTaken = true
		check.Description = fmt.Sprintf("ATR %.2f%% outside band - EXCEPTION: rvol spike z=%.2f ≥ %.2f",
			fs.ATRPct, fs.ZRVOL, ge.cfg.RVOLSpikeZ)
		return check
	}

	check.Passed = false
	check.Description = fmt.Sprintf("ATR %.2f%% outside band (z_rvol %.2f, exception allowed: %t)",
		fs.ATRPct, fs.ZRVOL, ge.cfg.AllowATROutsideWithSpike)
	return check
}

// Summary returns a concise guard evaluation summary
func (gr *GuardResult) Summary() string {
	if gr.Passed {
		suffix := ""
		if gr.ExceptionTaken {
			suffix = ", atr exception"
		}
		return fmt.Sprintf("GUARDS CLEARED - %s (%d/%d passed%s)",
			gr.Symbol, len(gr.PassedGuards), len(gr.Checks), suffix)
	}
	return fmt.Sprintf("GUARD BLOCKED - %s (%s, %d failures)",
		gr.Symbol, gr.FailedGuard, len(gr.FailureReasons))
}
