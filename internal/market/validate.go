package market

import (
	"fmt"
	"math"
	"strings"
)

// InputError reports a missing or malformed input field. The caller skips the
// symbol for this cycle; it never aborts a whole scan.
type InputError struct {
	Symbol  string
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input (symbol=%s, field=%s): %s", e.Symbol, e.Field, e.Message)
}

// Validate checks that every bar field the engine reads is populated and sane
func (b Bar) Validate() error {
	if strings.TrimSpace(b.Symbol) == "" {
		return &InputError{Field: "symbol", Message: "symbol is required"}
	}

	numeric := []struct {
		name  string
		value float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close},
		{"volume", b.Volume}, {"ema20", b.EMA20}, {"vwap", b.VWAP}, {"avwap", b.AVWAP},
		{"rvol", b.RVOL}, {"z_rvol", b.ZRVOL}, {"atr_pct", b.ATRPct},
		{"spread_pct", b.SpreadPct}, {"expected_slip_pct", b.ExpectedSlipPct},
		{"depth_usd_5bps", b.DepthUSD5bps}, {"impulse_z", b.ImpulseZ},
		{"retrace_from_impulse_pct", b.RetraceFromImpulsePct},
	}
	for _, f := range numeric {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &InputError{Symbol: b.Symbol, Field: f.name, Message: "value is not finite"}
		}
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close},
		{"ema20", b.EMA20}, {"vwap", b.VWAP},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return &InputError{Symbol: b.Symbol, Field: f.name, Message: fmt.Sprintf("must be > 0, got %g", f.value)}
		}
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"volume", b.Volume}, {"rvol", b.RVOL}, {"atr_pct", b.ATRPct},
		{"spread_pct", b.SpreadPct}, {"expected_slip_pct", b.ExpectedSlipPct},
		{"depth_usd_5bps", b.DepthUSD5bps},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			return &InputError{Symbol: b.Symbol, Field: f.name, Message: fmt.Sprintf("must be >= 0, got %g", f.value)}
		}
	}

	if b.HoldoutDaysRemaining < 0 {
		return &InputError{Symbol: b.Symbol, Field: "holdout_days_remaining", Message: "must be >= 0"}
	}
	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return &InputError{Symbol: b.Symbol, Field: "high/low", Message: fmt.Sprintf(
			"range [%g, %g] does not contain open %g and close %g", b.Low, b.High, b.Open, b.Close)}
	}

	return nil
}

// Validate checks the per-cycle context
func (mc MarketContext) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"rvol_btc", mc.RVOLBTC}, {"breadth", mc.Breadth}, {"max_spread_pct", mc.MaxSpreadPct},
		{"max_slip_pct", mc.MaxSlipPct}, {"depth_min_usd", mc.DepthMinUSD},
		{"atr_min_pct", mc.ATRMinPct}, {"atr_max_pct", mc.ATRMaxPct},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return &InputError{Symbol: "*", Field: f.name, Message: fmt.Sprintf("must be finite and >= 0, got %g", f.value)}
		}
	}
	if mc.Breadth > 1 {
		return &InputError{Symbol: "*", Field: "breadth", Message: fmt.Sprintf("must be within [0, 1], got %g", mc.Breadth)}
	}
	if mc.ATRMinPct > mc.ATRMaxPct {
		return &InputError{Symbol: "*", Field: "atr_min_pct", Message: fmt.Sprintf(
			"atr band [%g, %g] is inverted", mc.ATRMinPct, mc.ATRMaxPct)}
	}
	return nil
}
