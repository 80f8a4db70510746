// Package engine assembles one (symbol, bar) evaluation into a Signal or a
// no-signal reason code. It is synchronous, performs no I/O and holds no
// mutable state, so one Engine serves any number of goroutines.
package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/features"
	"github.com/sawpanic/signalrun/internal/gates"
	"github.com/sawpanic/signalrun/internal/market"
	"github.com/sawpanic/signalrun/internal/mtf"
	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/score"
	"github.com/sawpanic/signalrun/internal/setups"
	"github.com/sawpanic/signalrun/internal/signal"
	"github.com/sawpanic/signalrun/internal/targets"
)

// Request is everything one evaluation needs
type Request struct {
	Bar     market.Bar           `json:"bar" yaml:"bar"`
	Context market.MarketContext `json:"context" yaml:"context"`

	// Level is the nearest resistance above entry, nil when unknown
	Level *float64 `json:"level,omitempty" yaml:"level,omitempty"`

	// HigherTimeframe is optional; absent means no MTF confirmation
	HigherTimeframe []market.Candle `json:"higher_timeframe,omitempty" yaml:"higher_timeframe,omitempty"`

	// AsOf stamps the signal and its audit id; zero uses the engine clock
	AsOf time.Time `json:"as_of,omitempty" yaml:"as_of,omitempty"`
}

// Decision is the outcome of one evaluation. Exactly one of Signal and Reason
// is set. The intermediate results are kept for display and audit.
type Decision struct {
	Symbol     string             `json:"symbol"`
	Regime     regime.Regime      `json:"regime"`
	Thresholds regime.Thresholds  `json:"thresholds"`
	Setup      setups.Match       `json:"setup"`
	Candidates []setups.Setup     `json:"candidates,omitempty"`
	Score      *score.Result      `json:"score,omitempty"`
	Guards     *gates.GuardResult `json:"guards,omitempty"`
	Targets    *targets.Targets   `json:"targets,omitempty"`
	MTF        *mtf.Result        `json:"mtf,omitempty"`
	Signal     *signal.Signal     `json:"signal,omitempty"`
	Reason     signal.ReasonCode  `json:"reason,omitempty"`
	Detail     string             `json:"detail,omitempty"`
}

// Emitted reports whether the evaluation produced a signal
func (d Decision) Emitted() bool {
	return d.Signal != nil
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock overrides the time source used when a request has no AsOf
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides the engine's logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine wires the pipeline stages over one configuration snapshot
type Engine struct {
	cfg        *config.Config
	thresholds *regime.ThresholdRouter
	router     *setups.Router
	scorer     *score.Scorer
	guards     *gates.GuardEvaluator
	builder    *targets.Builder
	mtf        *mtf.Filter
	now        func() time.Time
	logger     zerolog.Logger
}

// New builds an engine. cfg must already be validated.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		thresholds: regime.NewThresholdRouter(cfg),
		router:     setups.NewRouter(cfg),
		scorer:     score.NewScorer(cfg),
		guards:     gates.NewGuardEvaluator(cfg),
		builder:    targets.NewBuilder(cfg),
		mtf:        mtf.NewFilter(cfg),
		now:        time.Now,
		logger:     log.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the snapshot the engine was built with
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Evaluate runs validate, regime, thresholds, features, route, score, guards,
// cutoff, targets, MTF and assembly, stopping at the first no-signal outcome.
// Errors are reserved for malformed input (*market.InputError) and degenerate
// arithmetic (*targets.DegenerateInputError).
func (e *Engine) Evaluate(req Request) (Decision, error) {
	bar := req.Bar
	if err := bar.Validate(); err != nil {
		return Decision{Symbol: bar.Symbol}, err
	}
	if err := req.Context.Validate(); err != nil {
		var inputErr *market.InputError
		if errors.As(err, &inputErr) {
			inputErr.Symbol = bar.Symbol
		}
		return Decision{Symbol: bar.Symbol}, err
	}

	r := regime.Detect(e.cfg, req.Context.RVOLBTC, req.Context.Breadth)
	th := e.thresholds.Select(r)
	d := Decision{Symbol: bar.Symbol, Regime: r, Thresholds: th}

	fs := features.Extract(bar, req.Context, th, e.cfg)
	logger := e.logger.With().Str("symbol", bar.Symbol).Str("regime", r.String()).Logger()

	d.Setup = e.router.Route(fs)
	d.Candidates = e.router.Candidates(fs)
	if d.Setup.Setup == setups.NONE {
		return e.reject(logger, d, signal.ReasonNoSetup, "no setup matched"), nil
	}

	res := e.scorer.Score(fs, d.Setup, r)
	d.Score = &res

	d.Guards = e.guards.Evaluate(fs)
	if !d.Guards.Passed {
		return e.reject(logger, d, signal.GuardFail(d.Guards.FailedGuard), d.Guards.Summary()), nil
	}

	if res.Score < th.ScoreCutoff {
		return e.reject(logger, d, signal.ReasonBelowCutoff, e.thresholds.Describe(r)), nil
	}

	side := signal.Long
	entry := bar.Close
	stop := e.builder.StopFor(side, entry, bar.ATRPct)
	tg, err := e.builder.Build(side, entry, stop, req.Level)
	if err != nil {
		logger.Debug().Err(err).Msg("target construction failed")
		return d, err
	}
	d.Targets = &tg
	if tg.Rejected {
		return e.reject(logger, d, signal.ReasonSRClampReject, tg.Note), nil
	}

	mr := e.mtf.Check(side, req.HigherTimeframe)
	d.MTF = &mr
	if mr.Vetoed {
		return e.reject(logger, d, signal.ReasonMTFVeto, mr.Note), nil
	}

	at := req.AsOf
	if at.IsZero() {
		at = e.now()
	}
	at = at.UTC()

	d.Signal = &signal.Signal{
		AuditID:              signal.AuditID(at, bar.Symbol, entry, res.Score),
		Symbol:               bar.Symbol,
		Side:                 side,
		Setup:                d.Setup.Setup,
		Regime:               r,
		Entry:                entry,
		Stop:                 tg.Stop,
		TP1:                  tg.TP1,
		TP2:                  tg.TP2,
		TPFinal:              tg.TPFinal,
		TP1Clamped:           tg.Clamped,
		TrailATRMult:         tg.Trail.Initial,
		TrailATRMultAfterTP1: tg.Trail.AfterTP1,
		TrailATRMultAfterTP2: tg.Trail.AfterTP2,
		Score:                res.Score,
		Reasons:              append([]string(nil), res.Reasons...),
		SizeMultiplier:       gates.SizeMultiplier(fs, d.Guards, e.cfg),
		MTFNote:              mr.Note,
		GeneratedAt:          at,
	}

	logger.Debug().
		Str("setup", string(d.Setup.Setup)).
		Float64("score", res.Score).
		Float64("size_mult", d.Signal.SizeMultiplier).
		Str("audit_id", d.Signal.AuditID).
		Msg("signal emitted")

	return d, nil
}

func (e *Engine) reject(logger zerolog.Logger, d Decision, reason signal.ReasonCode, detail string) Decision {
	d.Reason = reason
	d.Detail = detail
	logger.Debug().Str("reason", string(reason)).Str("detail", detail).Msg("no signal")
	return d
}
