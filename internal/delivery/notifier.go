package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/signal"
)

// Notifier delivers a rendered signal to subscribers
type Notifier interface {
	Notify(ctx context.Context, s *signal.Signal) error
}

// LogNotifier writes signal cards to the structured log
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier on the global logger
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, s *signal.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info().
		Str("audit_id", s.AuditID).
		Str("symbol", s.Symbol).
		Str("setup", string(s.Setup)).
		Float64("score", s.Score).
		Msg(RenderCard(s))
	return nil
}

// RenderCard formats the human-readable signal card
func RenderCard(s *signal.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s | %s regime | score %.1f\n", strings.ToUpper(string(s.Side)), s.Symbol, s.Setup, s.Regime, s.Score)
	fmt.Fprintf(&b, "entry %.4f  stop %.4f  R %.4f\n", s.Entry, s.Stop, s.Risk())
	tp1 := fmt.Sprintf("%.4f", s.TP1)
	if s.TP1Clamped {
		tp1 += " (clamped)"
	}
	fmt.Fprintf(&b, "tp1 %s  tp2 %.4f  final %.4f\n", tp1, s.TP2, s.TPFinal)
	fmt.Fprintf(&b, "trail %.2f/%.2f/%.2f ATR  size x%.2f\n", s.TrailATRMult, s.TrailATRMultAfterTP1, s.TrailATRMultAfterTP2, s.SizeMultiplier)
	if len(s.Reasons) > 0 {
		fmt.Fprintf(&b, "why: %s\n", strings.Join(s.Reasons, "; "))
	}
	fmt.Fprintf(&b, "id %s", s.AuditID)
	return b.String()
}
