// Package scan runs one scan cycle: the engine applied to many symbols under a
// single market context, concurrently and with per-symbol failure isolation.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/signalrun/internal/engine"
	"github.com/sawpanic/signalrun/internal/features"
	"github.com/sawpanic/signalrun/internal/market"
	"github.com/sawpanic/signalrun/internal/metrics"
	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/signal"
	"github.com/sawpanic/signalrun/internal/targets"
)

// Pre-filter skip reasons
const (
	SkipRVOL      = "rvol"
	SkipLiquidity = "liquidity"
	SkipStale     = "stale"
)

// Input is one symbol's data for a cycle
type Input struct {
	Bar             market.Bar      `yaml:"bar" json:"bar"`
	Level           *float64        `yaml:"level,omitempty" json:"level,omitempty"`
	HigherTimeframe []market.Candle `yaml:"higher_timeframe,omitempty" json:"higher_timeframe,omitempty"`

	// History, when present, replaces the bar's impulse fields with values
	// derived over IMP_PB_LOOKBACK candles
	History []market.Candle `yaml:"history,omitempty" json:"history,omitempty"`
}

// Result is the per-symbol outcome. Exactly one of Decision, Skipped and Err is set.
type Result struct {
	Symbol   string           `json:"symbol"`
	Decision *engine.Decision `json:"decision,omitempty"`
	Skipped  string           `json:"skipped,omitempty"`
	Err      error            `json:"-"`
}

// Cycle is the outcome of one scan
type Cycle struct {
	ID         string            `json:"id"`
	AsOf       time.Time         `json:"as_of"`
	Regime     regime.Regime     `json:"regime"`
	Thresholds regime.Thresholds `json:"thresholds"`
	Results    []Result          `json:"results"`
	Duration   time.Duration     `json:"duration"`
}

// Signals returns the emitted signals ordered by score desc, then symbol
func (c *Cycle) Signals() []*signal.Signal {
	var out []*signal.Signal
	for _, r := range c.Results {
		if r.Decision != nil && r.Decision.Signal != nil {
			out = append(out, r.Decision.Signal)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Summary counts outcomes: signals, reason codes, skips and errors
func (c *Cycle) Summary() map[string]int {
	counts := make(map[string]int)
	for _, r := range c.Results {
		switch {
		case r.Err != nil:
			counts["error"]++
		case r.Skipped != "":
			counts["skipped:"+r.Skipped]++
		case r.Decision.Emitted():
			counts["signal"]++
		default:
			counts[string(r.Decision.Reason)]++
		}
	}
	return counts
}

// Option customizes a Scanner
type Option func(*Scanner)

// WithMetrics records cycle outcomes to m
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithWorkers bounds the number of concurrent evaluations
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// Scanner fans the engine out over a symbol universe
type Scanner struct {
	engine    *engine.Engine
	workers   int
	metrics   *metrics.Registry
	freshness *FreshnessGate
	newID     func() string
}

// NewScanner creates a scanner. Workers default to SCAN_WORKERS.
func NewScanner(eng *engine.Engine, opts ...Option) *Scanner {
	s := &Scanner{
		engine:    eng,
		workers:   eng.Config().Runtime.ScanWorkers,
		freshness: NewFreshnessGate(eng.Config().Runtime.MaxBarAge),
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Run evaluates every input under mc. Malformed or degenerate symbols are
// recorded and skipped; only an invalid context or cancellation fails the cycle.
func (s *Scanner) Run(ctx context.Context, mc market.MarketContext, inputs []Input, asOf time.Time) (*Cycle, error) {
	start := time.Now()
	if err := mc.Validate(); err != nil {
		return nil, fmt.Errorf("scan cycle: %w", err)
	}

	cfg := s.engine.Config()
	r := regime.Detect(cfg, mc.RVOLBTC, mc.Breadth)
	th := regime.NewThresholdRouter(cfg).Select(r)

	cycle := &Cycle{
		ID:         s.newID(),
		AsOf:       asOf.UTC(),
		Regime:     r,
		Thresholds: th,
		Results:    make([]Result, len(inputs)),
	}
	logger := log.With().Str("cycle", cycle.ID).Str("regime", r.String()).Logger()
	logger.Info().Int("symbols", len(inputs)).Str("thresholds", regime.NewThresholdRouter(cfg).Describe(r)).Msg("Scan cycle started")

	if s.metrics != nil {
		s.metrics.SetRegime(r)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range inputs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cycle.Results[i] = s.evaluate(inputs[i], mc, th, cycle.AsOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cycle %s aborted: %w", cycle.ID, err)
	}

	cycle.Duration = time.Since(start)
	logger.Info().
		Int("signals", len(cycle.Signals())).
		Interface("outcomes", cycle.Summary()).
		Dur("duration", cycle.Duration).
		Msg("Scan cycle complete")

	return cycle, nil
}

func (s *Scanner) evaluate(in Input, mc market.MarketContext, th regime.Thresholds, asOf time.Time) Result {
	cfg := s.engine.Config()
	bar := in.Bar
	res := Result{Symbol: bar.Symbol}

	if len(in.History) > 0 {
		imp, err := market.DeriveImpulse(in.History, cfg.ImpPBLookback)
		if err != nil {
			res.Err = &market.InputError{Symbol: bar.Symbol, Field: "history", Message: err.Error()}
			s.recordError(res)
			return res
		}
		bar = bar.WithImpulse(imp)
	}

	if err := bar.Validate(); err != nil {
		res.Err = err
		s.recordError(res)
		return res
	}

	fs := features.Extract(bar, mc, th, cfg)
	switch {
	case !s.freshness.Evaluate(bar, asOf).Fresh:
		res.Skipped = SkipStale
	case !fs.RVOLOk:
		res.Skipped = SkipRVOL
	case !fs.LiquidityOk:
		res.Skipped = SkipLiquidity
	}
	if res.Skipped != "" {
		if s.metrics != nil {
			s.metrics.RecordSkip(res.Skipped)
		}
		return res
	}

	var timer *metrics.StepTimer
	if s.metrics != nil {
		timer = s.metrics.StartStepTimer("evaluate")
	}
	started := time.Now()
	d, err := s.engine.Evaluate(engine.Request{
		Bar:             bar,
		Context:         mc,
		Level:           in.Level,
		HigherTimeframe: in.HigherTimeframe,
		AsOf:            asOf,
	})
	if err != nil {
		if timer != nil {
			timer.Stop("error")
		}
		res.Err = err
		s.recordError(res)
		return res
	}
	if s.metrics != nil {
		timer.Stop("success")
		s.metrics.ObserveDecision(d, time.Since(started))
	}
	res.Decision = &d
	return res
}

func (s *Scanner) recordError(res Result) {
	kind := "input"
	var degenerate *targets.DegenerateInputError
	if errors.As(res.Err, &degenerate) {
		kind = "degenerate"
	}
	log.Warn().Err(res.Err).Str("symbol", res.Symbol).Str("kind", kind).Msg("Symbol skipped this cycle")
	if s.metrics != nil {
		s.metrics.RecordInputError(kind)
	}
}
