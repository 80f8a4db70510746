package market

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Impulse describes the strongest up-bar inside a lookback window and how far
// price has given back the leg it started.
type Impulse struct {
	Index      int     // index of the impulse candle within the window
	ZScore     float64 // body return z-scored against the window
	LegLow     float64 // open of the impulse candle
	LegHigh    float64 // highest high from the impulse candle onwards
	RetracePct float64 // (LegHigh - last close) / (LegHigh - LegLow) * 100
}

// DeriveImpulse computes impulse_z and retrace_from_impulse_pct from raw
// history when the market-data collaborator did not precompute them. Only the
// last lookback candles are considered.
func DeriveImpulse(candles []Candle, lookback int) (Impulse, error) {
	if lookback < 2 {
		return Impulse{}, fmt.Errorf("lookback must be >= 2, got %d", lookback)
	}
	if len(candles) < lookback {
		return Impulse{}, fmt.Errorf("need %d candles, got %d", lookback, len(candles))
	}
	window := candles[len(candles)-lookback:]

	returns := make([]float64, len(window))
	best := 0
	for i, c := range window {
		if c.Open <= 0 {
			return Impulse{}, fmt.Errorf("candle %d has non-positive open %g", i, c.Open)
		}
		returns[i] = (c.Close - c.Open) / c.Open
		if returns[i] > returns[best] {
			best = i
		}
	}

	mean, std := stat.MeanStdDev(returns, nil)
	z := 0.0
	if std > 0 && !math.IsNaN(std) {
		z = (returns[best] - mean) / std
	}

	imp := Impulse{
		Index:   best,
		ZScore:  z,
		LegLow:  window[best].Open,
		LegHigh: window[best].High,
	}
	for _, c := range window[best:] {
		imp.LegHigh = math.Max(imp.LegHigh, c.High)
	}

	leg := imp.LegHigh - imp.LegLow
	last := window[len(window)-1].Close
	if leg > 0 {
		imp.RetracePct = (imp.LegHigh - last) / leg * 100
	}
	return imp, nil
}

// WithImpulse returns a copy of the bar carrying the derived impulse fields
func (b Bar) WithImpulse(imp Impulse) Bar {
	b.ImpulseZ = imp.ZScore
	b.RetraceFromImpulsePct = imp.RetracePct
	return b
}
