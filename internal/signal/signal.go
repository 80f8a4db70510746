// Package signal defines the engine's output record and its no-signal reason codes.
package signal

import (
	"time"

	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/setups"
)

// Side is the trade direction
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Sign returns +1 for long and -1 for short
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Signal is a fully sized trade idea. For a long, stop < entry < tp1 <= tp2 <= tp_final;
// a short mirrors it.
type Signal struct {
	AuditID    string        `json:"audit_id"`
	Symbol     string        `json:"symbol"`
	Side       Side          `json:"side"`
	Setup      setups.Setup  `json:"setup"`
	Regime     regime.Regime `json:"regime"`
	Entry      float64       `json:"entry"`
	Stop       float64       `json:"stop"`
	TP1        float64       `json:"tp1"`
	TP2        float64       `json:"tp2"`
	TPFinal    float64       `json:"tp_final"`
	TP1Clamped bool          `json:"tp1_clamped"`

	TrailATRMult         float64 `json:"trail_atr_mult"`
	TrailATRMultAfterTP1 float64 `json:"trail_atr_mult_after_tp1"`
	TrailATRMultAfterTP2 float64 `json:"trail_atr_mult_after_tp2"`

	Score          float64   `json:"score"`
	Reasons        []string  `json:"reasons"`
	SizeMultiplier float64   `json:"size_multiplier"`
	MTFNote        string    `json:"mtf_note,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Risk is the entry-to-stop distance
func (s *Signal) Risk() float64 {
	return (s.Entry - s.Stop) * s.Side.Sign()
}
