// Package targets turns an entry and stop into R-multiple take-profit levels,
// clamped against a nearby support/resistance level.
package targets

import (
	"fmt"
	"math"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/signal"
)

// DegenerateInputError reports inputs that would produce a zero risk unit or
// non-finite targets
type DegenerateInputError struct {
	Field   string
	Message string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate target input %s: %s", e.Field, e.Message)
}

// Trail carries the configured trailing-stop ATR multiples. Switching between
// them as targets are hit belongs to position management.
type Trail struct {
	Initial  float64 `json:"initial"`
	AfterTP1 float64 `json:"after_tp1"`
	AfterTP2 float64 `json:"after_tp2"`
}

// Targets is the take-profit ladder for one entry
type Targets struct {
	Side     signal.Side `json:"side"`
	Entry    float64     `json:"entry"`
	Stop     float64     `json:"stop"`
	R        float64     `json:"r"`
	TP1      float64     `json:"tp1"`
	TP2      float64     `json:"tp2"`
	TPFinal  float64     `json:"tp_final"`
	Trail    Trail       `json:"trail"`
	Clamped  bool        `json:"clamped"`
	Rejected bool        `json:"rejected"`
	Note     string      `json:"note,omitempty"`
}

// Builder computes targets from the configured R multiples
type Builder struct {
	cfg *config.Config
}

// NewBuilder creates a target builder bound to the configuration snapshot
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// StopFor places the protective stop STOP_ATR_MULT ATRs away from entry
func (b *Builder) StopFor(side signal.Side, entry, atrPct float64) float64 {
	atr := atrPct / 100 * entry
	return entry - side.Sign()*b.cfg.StopATRMult*atr
}

// Build computes the ladder. level is the nearest resistance for a long or
// support for a short, nil when unknown. A clamp that leaves tp1 short of the
// minimum reward marks the whole ladder Rejected.
func (b *Builder) Build(side signal.Side, entry, stop float64, level *float64) (Targets, error) {
	if side != signal.Long && side != signal.Short {
		return Targets{}, &DegenerateInputError{Field: "side", Message: fmt.Sprintf("unknown side %q", side)}
	}
	if !finitePositive(entry) {
		return Targets{}, &DegenerateInputError{Field: "entry", Message: fmt.Sprintf("must be finite and positive, got %v", entry)}
	}
	if math.IsNaN(stop) || math.IsInf(stop, 0) {
		return Targets{}, &DegenerateInputError{Field: "stop", Message: fmt.Sprintf("must be finite, got %v", stop)}
	}

	sign := side.Sign()
	r := (entry - stop) * sign
	if r == 0 {
		return Targets{}, &DegenerateInputError{Field: "stop", Message: "entry equals stop, risk unit is zero"}
	}
	if r < 0 {
		return Targets{}, &DegenerateInputError{Field: "stop", Message: fmt.Sprintf("stop %.8g is on the profit side of entry %.8g for %s", stop, entry, side)}
	}

	t := Targets{
		Side:    side,
		Entry:   entry,
		Stop:    stop,
		R:       r,
		TP1:     entry + sign*b.cfg.TP1R*r,
		TP2:     entry + sign*b.cfg.TP2R*r,
		TPFinal: entry + sign*b.cfg.TPFinalR*r,
		Trail: Trail{
			Initial:  b.cfg.TrailATRMult,
			AfterTP1: b.cfg.TrailATRMultAfterTP1,
			AfterTP2: b.cfg.TrailATRMultAfterTP2,
		},
	}

	if level == nil {
		return t, nil
	}
	if !finitePositive(*level) {
		return Targets{}, &DegenerateInputError{Field: "level", Message: fmt.Sprintf("must be finite and positive, got %v", *level)}
	}

	// a level at or beyond tp1 does not constrain it
	if (*level-t.TP1)*sign >= 0 {
		return t, nil
	}

	t.TP1 = *level * (1 - sign*b.cfg.SRClampBufferPct/100)
	t.Clamped = true

	// tp1 must stay strictly on the profit side of entry even with a zero reward floor
	floor := entry * (1 + sign*b.cfg.SRMinRewardPct/100)
	if (t.TP1-floor)*sign < 0 || (t.TP1-entry)*sign <= 0 {
		t.Rejected = true
		t.Note = fmt.Sprintf("tp1 clamped to %.4f by level %.4f, short of minimum reward %.4f", t.TP1, *level, floor)
		return t, nil
	}
	t.Note = fmt.Sprintf("tp1 clamped to %.4f by level %.4f", t.TP1, *level)

	return t, nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
