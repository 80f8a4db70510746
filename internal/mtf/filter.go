// Package mtf confirms a signal's side against the higher-timeframe trend.
package mtf

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/mat"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/market"
	"github.com/sawpanic/signalrun/internal/signal"
)

// Direction is the higher-timeframe trend
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Flat    Direction = "flat"
	Unknown Direction = "unknown"
)

// Result is the filter verdict. Vetoed is the only outcome that blocks a signal.
type Result struct {
	Direction Direction `json:"direction"`
	Vetoed    bool      `json:"vetoed"`
	EMA       float64   `json:"ema,omitempty"`
	Slope     float64   `json:"slope,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// Filter is advisory: missing or short series pass through
type Filter struct {
	enabled   bool
	emaPeriod int
	lookback  int
}

// NewFilter creates a filter from MTF_ENABLED, MTF_EMA_PERIOD and MTF_SLOPE_LOOKBACK
func NewFilter(cfg *config.Config) *Filter {
	return &Filter{
		enabled:   cfg.MTFEnabled,
		emaPeriod: cfg.MTFEMAPeriod,
		lookback:  cfg.MTFSlopeLookback,
	}
}

// Check classifies the higher-timeframe trend and vetoes a side that fights it
func (f *Filter) Check(side signal.Side, candles []market.Candle) Result {
	if !f.enabled {
		return Result{Direction: Unknown, Note: "mtf disabled"}
	}
	if len(candles) == 0 {
		return Result{Direction: Unknown, Note: "no higher timeframe series"}
	}
	if len(candles) < f.emaPeriod+1 || len(candles) < f.lookback {
		return Result{Direction: Unknown, Note: fmt.Sprintf("insufficient higher timeframe history: %d candles", len(candles))}
	}

	closes := market.Closes(candles)
	ema := talib.Ema(closes, f.emaPeriod)
	last := closes[len(closes)-1]
	lastEMA := ema[len(ema)-1]

	slope, err := Slope(closes[len(closes)-f.lookback:])
	if err != nil {
		return Result{Direction: Unknown, EMA: lastEMA, Note: fmt.Sprintf("slope fit failed: %v", err)}
	}

	res := Result{Direction: Flat, EMA: lastEMA, Slope: slope}
	switch {
	case last > lastEMA && slope > 0:
		res.Direction = Up
	case last < lastEMA && slope < 0:
		res.Direction = Down
	}

	if (side == signal.Long && res.Direction == Down) || (side == signal.Short && res.Direction == Up) {
		res.Vetoed = true
		res.Note = fmt.Sprintf("%s signal against %s higher timeframe trend", side, res.Direction)
	}
	return res
}

// Slope is the least-squares slope of y against its index
func Slope(y []float64) (float64, error) {
	if len(y) < 2 {
		return 0, fmt.Errorf("need at least 2 points, got %d", len(y))
	}

	a := mat.NewDense(len(y), 2, nil)
	for i := range y {
		a.Set(i, 0, 1)
		a.Set(i, 1, float64(i))
	}
	b := mat.NewDense(len(y), 1, append([]float64(nil), y...))
	c := mat.NewDense(2, 1, nil)

	qr := new(mat.QR)
	qr.Factorize(a)
	if err := qr.SolveTo(c, false, b); err != nil {
		return 0, err
	}
	return c.At(1, 0), nil
}
