// Package metrics exposes Prometheus instrumentation for scan cycles,
// engine decisions and signal delivery.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/engine"
	"github.com/sawpanic/signalrun/internal/regime"
)

const namespace = "signalrun"

// Evaluation outcomes
const (
	OutcomeSignal   = "signal"
	OutcomeNoSignal = "no_signal"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Registry holds all Prometheus metrics for signalrun
type Registry struct {
	// Engine decisions
	Evaluations      *prometheus.CounterVec
	NoSignalReasons  *prometheus.CounterVec
	GuardFailures    *prometheus.CounterVec
	Signals          *prometheus.CounterVec
	InputErrors      *prometheus.CounterVec
	EvalDuration     prometheus.Histogram
	Scores           *prometheus.HistogramVec
	ActiveRegime     prometheus.Gauge
	PrefilterSkipped *prometheus.CounterVec

	// Scan cycles
	StepDuration *prometheus.HistogramVec
	Cycles       prometheus.Counter

	// Delivery
	Publishes *prometheus.CounterVec
}

// NewRegistry creates the metrics and registers them with reg
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Engine evaluations by outcome",
			},
			[]string{"outcome"},
		),

		NoSignalReasons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "no_signal_total",
				Help:      "No-signal outcomes by reason kind",
			},
			[]string{"reason"},
		),

		GuardFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_failures_total",
				Help:      "GUARD_FAIL outcomes by guard",
			},
			[]string{"guard"},
		),

		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Emitted signals by setup and regime",
			},
			[]string{"setup", "regime"},
		),

		InputErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "input_errors_total",
				Help:      "Symbols skipped for malformed or degenerate input",
			},
			[]string{"kind"},
		),

		EvalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of one engine evaluation in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
		),

		Scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "score",
				Help:      "Distribution of scores for routed setups",
				Buckets:   prometheus.LinearBuckets(30, 5, 14),
			},
			[]string{"regime"},
		),

		ActiveRegime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_regime",
				Help:      "Regime of the last scan cycle (0=chop, 1=trend)",
			},
		),

		PrefilterSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prefilter_skipped_total",
				Help:      "Symbols dropped by the admission pre-filter",
			},
			[]string{"reason"},
		),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each scan step in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"step", "result"},
		),

		Cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_cycles_total",
				Help:      "Total number of scan cycles run",
			},
		),

		Publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_total",
				Help:      "Signal publish attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		r.Evaluations,
		r.NoSignalReasons,
		r.GuardFailures,
		r.Signals,
		r.InputErrors,
		r.EvalDuration,
		r.Scores,
		r.ActiveRegime,
		r.PrefilterSkipped,
		r.StepDuration,
		r.Cycles,
		r.Publishes,
	)

	return r
}

// ObserveDecision records one engine decision
func (r *Registry) ObserveDecision(d engine.Decision, took time.Duration) {
	r.EvalDuration.Observe(took.Seconds())

	if d.Score != nil {
		r.Scores.WithLabelValues(d.Regime.String()).Observe(d.Score.Score)
	}
	if d.Emitted() {
		r.Evaluations.WithLabelValues(OutcomeSignal).Inc()
		r.Signals.WithLabelValues(string(d.Signal.Setup), d.Regime.String()).Inc()
		return
	}
	r.Evaluations.WithLabelValues(OutcomeNoSignal).Inc()
	r.NoSignalReasons.WithLabelValues(d.Reason.Kind()).Inc()
	if guard, ok := d.Reason.IsGuardFail(); ok {
		r.GuardFailures.WithLabelValues(guard).Inc()
	}
}

// RecordInputError records a symbol skipped because the engine returned an error
func (r *Registry) RecordInputError(kind string) {
	r.Evaluations.WithLabelValues(OutcomeError).Inc()
	r.InputErrors.WithLabelValues(kind).Inc()
}

// RecordSkip records a symbol dropped before evaluation
func (r *Registry) RecordSkip(reason string) {
	r.Evaluations.WithLabelValues(OutcomeSkipped).Inc()
	r.PrefilterSkipped.WithLabelValues(reason).Inc()
}

// SetRegime publishes the cycle regime
func (r *Registry) SetRegime(rg regime.Regime) {
	r.Cycles.Inc()
	r.ActiveRegime.Set(float64(rg))
}

// RecordPublish records one delivery outcome
func (r *Registry) RecordPublish(outcome string) {
	r.Publishes.WithLabelValues(outcome).Inc()
}

// StepTimer tracks execution time for scan steps
type StepTimer struct {
	metrics *Registry
	step    string
	start   time.Time
}

// StartStepTimer begins timing a scan step
func (r *Registry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{
		metrics: r,
		step:    step,
		start:   time.Now(),
	}
}

// Stop completes the step timing and records the metric
func (st *StepTimer) Stop(result string) {
	duration := time.Since(st.start)
	st.metrics.StepDuration.WithLabelValues(st.step, result).Observe(duration.Seconds())

	log.Debug().
		Str("step", st.step).
		Str("result", result).
		Dur("duration", duration).
		Msg("Scan step completed")
}

// Sample is one flattened counter or gauge value
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers every signalrun counter and gauge, sorted by name and labels.
// Histograms are reported as their sample count.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var out []Sample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Labels: labelString(m.GetLabel())}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%s", lp.GetName(), lp.GetValue()))
	}
	return strings.Join(parts, ",")
}
