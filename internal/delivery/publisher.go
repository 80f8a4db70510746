package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/metrics"
	"github.com/sawpanic/signalrun/internal/persistence"
	"github.com/sawpanic/signalrun/internal/signal"
)

// Outcome of one publish attempt
type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeDedupFailed  Outcome = "dedup_failed"
	OutcomeStoreFailed  Outcome = "store_failed"
	OutcomeNotifyFailed Outcome = "notify_failed"
)

// Report is the per-signal publish result
type Report struct {
	AuditID string
	Symbol  string
	Outcome Outcome
	Err     error
}

// Option customizes a Publisher
type Option func(*Publisher)

// WithMetrics records publish outcomes to m
func WithMetrics(m *metrics.Registry) Option {
	return func(p *Publisher) { p.metrics = m }
}

// Publisher runs dedup, store and notify for each emitted signal. Store and
// notify calls go through circuit breakers; notifications are rate limited.
type Publisher struct {
	dedup    Deduper
	store    persistence.SignalStore
	notifier Notifier

	storeBreaker  *gobreaker.CircuitBreaker
	notifyBreaker *gobreaker.CircuitBreaker
	limiter       *rate.Limiter
	ttl           time.Duration
	metrics       *metrics.Registry
}

// NewPublisher wires the collaborators using DEDUP_TTL, NOTIFY_RPS and NOTIFY_BURST
func NewPublisher(cfg *config.Config, dedup Deduper, store persistence.SignalStore, notifier Notifier, opts ...Option) *Publisher {
	p := &Publisher{
		dedup:         dedup,
		store:         store,
		notifier:      notifier,
		storeBreaker:  newBreaker("signal-store"),
		notifyBreaker: newBreaker("signal-notify"),
		limiter:       rate.NewLimiter(rate.Limit(cfg.Runtime.NotifyRPS), cfg.Runtime.NotifyBurst),
		ttl:           cfg.Runtime.DedupTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Publish delivers one signal. A duplicate audit id, whether caught by the
// deduper or by the store, is a normal outcome and returns no error. A failed
// store or notify step leaves no claim behind, so the signal can be retried.
func (p *Publisher) Publish(ctx context.Context, s *signal.Signal) (Outcome, error) {
	outcome, err := p.publish(ctx, s)
	if p.metrics != nil {
		p.metrics.RecordPublish(string(outcome))
	}

	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("audit_id", s.AuditID).Str("symbol", s.Symbol).Str("outcome", string(outcome)).Msg("Signal publish")

	return outcome, err
}

func (p *Publisher) publish(ctx context.Context, s *signal.Signal) (Outcome, error) {
	claimed, err := p.dedup.Claim(ctx, s.AuditID, p.ttl)
	if err != nil {
		return OutcomeDedupFailed, fmt.Errorf("dedup %s: %w", s.AuditID, err)
	}
	if !claimed {
		return OutcomeDuplicate, nil
	}

	res, err := p.storeBreaker.Execute(func() (interface{}, error) {
		return p.store.Insert(ctx, s)
	})
	if err != nil {
		p.rollback(ctx, s.AuditID, false)
		return OutcomeStoreFailed, fmt.Errorf("store %s: %w", s.AuditID, err)
	}
	if inserted, _ := res.(bool); !inserted {
		return OutcomeDuplicate, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.rollback(ctx, s.AuditID, true)
		return OutcomeNotifyFailed, fmt.Errorf("notify %s: %w", s.AuditID, err)
	}
	_, err = p.notifyBreaker.Execute(func() (interface{}, error) {
		return nil, p.notifier.Notify(ctx, s)
	})
	if err != nil {
		p.rollback(ctx, s.AuditID, true)
		return OutcomeNotifyFailed, fmt.Errorf("notify %s: %w", s.AuditID, err)
	}

	return OutcomeSent, nil
}

// rollback undoes a failed attempt so a later publish of the same audit id
// is delivered rather than reported as a duplicate. A stored row means the
// signal was notified, so it goes too when the notify step failed.
func (p *Publisher) rollback(ctx context.Context, auditID string, stored bool) {
	ctx = context.WithoutCancel(ctx)

	if stored {
		if err := p.store.Delete(ctx, auditID); err != nil {
			log.Error().Err(err).Str("audit_id", auditID).Msg("Failed to remove undelivered signal")
		}
	}
	if err := p.dedup.Release(ctx, auditID); err != nil {
		log.Error().Err(err).Str("audit_id", auditID).Msg("Failed to release dedup claim")
	}
}

// PublishAll delivers signals in order. Failures are reported per signal and
// never stop the batch; only cancellation does.
func (p *Publisher) PublishAll(ctx context.Context, signals []*signal.Signal) ([]Report, error) {
	reports := make([]Report, 0, len(signals))
	for _, s := range signals {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		outcome, err := p.Publish(ctx, s)
		reports = append(reports, Report{AuditID: s.AuditID, Symbol: s.Symbol, Outcome: outcome, Err: err})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return reports, err
		}
	}
	return reports, nil
}
