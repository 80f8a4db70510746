package scan

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/engine"
	"github.com/sawpanic/signalrun/internal/market"
	"github.com/sawpanic/signalrun/internal/metrics"
	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/signal"
)

var asOf = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func cycleContext() market.MarketContext {
	return market.MarketContext{
		RVOLBTC: 1.0, Breadth: 0.6,
		MaxSpreadPct: 0.1, MaxSlipPct: 0.1, DepthMinUSD: 100000,
		ATRMinPct: 0.5, ATRMaxPct: 6,
	}
}

func breakoutBar(symbol string, rvol float64) market.Bar {
	return market.Bar{
		Symbol: symbol,
		Open:   100, High: 103, Low: 99.5, Close: 102, Volume: 5000,
		EMA20: 101, VWAP: 100.5, AVWAP: 100.2,
		RVOL: rvol, ZRVOL: 1.2, ATRPct: 2,
		SpreadPct: 0.05, ExpectedSlipPct: 0.04, DepthUSD5bps: 250000,
		ImpulseZ: 0.5, RetraceFromImpulsePct: 60,
		CrossUpEMA20: true,
	}
}

func newTestScanner(t *testing.T, reg *metrics.Registry) *Scanner {
	t.Helper()
	s := NewScanner(engine.New(config.Default()), WithWorkers(4), WithMetrics(reg))
	s.newID = func() string { return "cycle-test" }
	return s
}

func TestRunMixedUniverse(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	s := newTestScanner(t, reg)

	noSetup := breakoutBar("XRP/USDT", 1.5)
	noSetup.CrossUpEMA20 = false

	thin := breakoutBar("DOGE/USDT", 1.5)
	thin.Volume = 100

	broken := breakoutBar("ADA/USDT", 1.5)
	broken.VWAP = math.NaN()

	inputs := []Input{
		{Bar: breakoutBar("SOL/USDT", 1.0)},
		{Bar: breakoutBar("BTC/USDT", 1.5)},
		{Bar: breakoutBar("LINK/USDT", 0.7)},
		{Bar: noSetup},
		{Bar: thin},
		{Bar: broken},
		{Bar: breakoutBar("AVAX/USDT", 1.5)},
	}

	cycle, err := s.Run(context.Background(), cycleContext(), inputs, asOf)
	require.NoError(t, err)

	assert.Equal(t, "cycle-test", cycle.ID)
	assert.Equal(t, regime.Trend, cycle.Regime)
	require.Len(t, cycle.Results, len(inputs))
	for i, r := range cycle.Results {
		assert.Equal(t, inputs[i].Bar.Symbol, r.Symbol, "results keep input order")
	}

	assert.Equal(t, SkipRVOL, cycle.Results[2].Skipped)
	assert.Equal(t, SkipLiquidity, cycle.Results[4].Skipped)
	assert.Equal(t, signal.ReasonNoSetup, cycle.Results[3].Decision.Reason)

	var inputErr *market.InputError
	require.True(t, errors.As(cycle.Results[5].Err, &inputErr))
	assert.Equal(t, "vwap", inputErr.Field)

	signals := cycle.Signals()
	require.Len(t, signals, 3)
	assert.Equal(t, "AVAX/USDT", signals[0].Symbol, "equal scores order by symbol")
	assert.Equal(t, "BTC/USDT", signals[1].Symbol)
	assert.Equal(t, "SOL/USDT", signals[2].Symbol, "lower rvol scores lower")

	assert.Equal(t, map[string]int{
		"signal":            3,
		"skipped:rvol":      1,
		"skipped:liquidity": 1,
		"NO_SETUP":          1,
		"error":             1,
	}, cycle.Summary())

	assert.Equal(t, 3.0, testutil.ToFloat64(reg.Evaluations.WithLabelValues(metrics.OutcomeSignal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.InputErrors.WithLabelValues("input")))
}

func TestRunDerivesImpulseFromHistory(t *testing.T) {
	s := newTestScanner(t, nil)

	history := make([]market.Candle, 12)
	for i := range history {
		history[i] = market.Candle{Open: 100, High: 100.5, Low: 99.5, Close: 100.1, Volume: 10}
	}
	history[9] = market.Candle{Open: 100, High: 106, Low: 99.9, Close: 105.5, Volume: 50}
	history[11] = market.Candle{Open: 105, High: 105.2, Low: 104.5, Close: 105, Volume: 10}

	bar := breakoutBar("ETH/USDT", 1.5)
	bar.CrossUpEMA20 = false
	bar.PullbackLowAboveEMA20 = true

	cycle, err := s.Run(context.Background(), cycleContext(), []Input{{Bar: bar, History: history}}, asOf)
	require.NoError(t, err)

	d := cycle.Results[0].Decision
	require.NotNil(t, d)
	assert.Equal(t, "PULL", string(d.Setup.Setup))
}

func TestRunShortHistoryIsInputError(t *testing.T) {
	s := newTestScanner(t, nil)

	cycle, err := s.Run(context.Background(), cycleContext(), []Input{
		{Bar: breakoutBar("ETH/USDT", 1.5), History: make([]market.Candle, 3)},
	}, asOf)
	require.NoError(t, err)

	var inputErr *market.InputError
	require.True(t, errors.As(cycle.Results[0].Err, &inputErr))
	assert.Equal(t, "history", inputErr.Field)
}

func TestRunDegenerateSymbolDoesNotAbort(t *testing.T) {
	s := newTestScanner(t, nil)
	mc := cycleContext()
	mc.ATRMinPct = 0

	flat := breakoutBar("FLAT/USDT", 1.5)
	flat.ATRPct = 0

	cycle, err := s.Run(context.Background(), mc, []Input{{Bar: flat}, {Bar: breakoutBar("BTC/USDT", 1.5)}}, asOf)
	require.NoError(t, err)

	assert.Error(t, cycle.Results[0].Err)
	assert.Len(t, cycle.Signals(), 1)
}

func TestRunInvalidContext(t *testing.T) {
	s := newTestScanner(t, nil)
	mc := cycleContext()
	mc.Breadth = -0.1

	_, err := s.Run(context.Background(), mc, []Input{{Bar: breakoutBar("BTC/USDT", 1.5)}}, asOf)
	require.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	s := newTestScanner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, cycleContext(), []Input{{Bar: breakoutBar("BTC/USDT", 1.5)}}, asOf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunSkipsStaleBars(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.MaxBarAge = 2 * time.Hour
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	s := NewScanner(engine.New(cfg), WithMetrics(reg))

	fresh := breakoutBar("BTC/USDT", 1.5)
	fresh.Timestamp = asOf.Add(-time.Hour)
	stale := breakoutBar("ETH/USDT", 1.5)
	stale.Timestamp = asOf.Add(-6 * time.Hour)

	cycle, err := s.Run(context.Background(), cycleContext(), []Input{{Bar: fresh}, {Bar: stale}}, asOf)
	require.NoError(t, err)

	assert.True(t, cycle.Results[0].Decision.Emitted())
	assert.Equal(t, SkipStale, cycle.Results[1].Skipped)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PrefilterSkipped.WithLabelValues(SkipStale)))
}
