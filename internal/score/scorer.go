// Package score computes the rule-based confidence score for a routed setup.
package score

import (
	"fmt"
	"math"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/features"
	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/setups"
)

const (
	baseScore = 50.0

	rvolFloor     = 0.60
	rvolSlope     = 20.0
	rvolMaxPoints = 12.0

	alignBonus      = 10.0
	misalignPenalty = -6.0
	weakClosePoints = -5.0
	spikeBonus      = 4.0

	emaBreakoutBonus  = 6.0
	avwapReclaimBonus = 7.0
	wickReclaimBonus  = 3.0
	impulsePBBonus    = 8.0
)

// Result is the score plus every rule that contributed, in evaluation order
type Result struct {
	Score   float64       `json:"score"`
	Reasons []string      `json:"reasons"`
	Regime  regime.Regime `json:"regime"`
	Clamped bool          `json:"clamped,omitempty"`
}

// Scorer applies the additive scoring rules
type Scorer struct {
	cfg *config.Config
}

// NewScorer creates a scorer bound to the configuration snapshot
func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// RVOLPoints is the linear relative-volume ramp, saturating at +12 from rvol 1.20
func RVOLPoints(rvol float64) float64 {
	return math.Max(0, math.Min((rvol-rvolFloor)*rvolSlope, rvolMaxPoints))
}

// Score evaluates the feature set for the matched setup. Whether the total is
// bounded to [0, 100] is controlled by SCORE_CLAMP; comparison against the
// regime cutoff is left to the caller.
func (s *Scorer) Score(fs features.FeatureSet, m setups.Match, r regime.Regime) Result {
	res := Result{Score: baseScore, Regime: r}
	add := func(points float64, format string, args ...interface{}) {
		res.Score += points
		res.Reasons = append(res.Reasons, fmt.Sprintf("%s %+.1f", fmt.Sprintf(format, args...), points))
	}

	if p := RVOLPoints(fs.RVOL); p > 0 {
		add(p, "rvol %.2f", fs.RVOL)
	}

	if fs.Align {
		add(alignBonus, "trend align")
	} else {
		add(misalignPenalty, "no align")
	}

	if fs.CloseLEOpen {
		add(weakClosePoints, "close<=open")
	}

	if fs.ZRVOL >= s.cfg.RVOLSpikeZ {
		add(spikeBonus, "rvol spike z=%.2f", fs.ZRVOL)
	}

	switch m.Style {
	case setups.StyleEMABreakout:
		if fs.Align && fs.BreakAboveEMA {
			add(emaBreakoutBonus, "ema_breakout")
		}
	case setups.StyleAVWAPReclaim:
		if fs.ReclaimVWAP {
			add(avwapReclaimBonus, "avwap_reclaim")
		}
		if fs.WickReclaim && s.cfg.ReclaimUseWick {
			add(wickReclaimBonus, "avwap_reclaim wick")
		}
	case setups.StyleImpulsePB:
		if fs.ImpulseBar && fs.ShallowRetrace {
			add(impulsePBBonus, "impulse_pb")
		}
	}

	if s.cfg.ScoreClamp {
		res.bound(0, 100)
	}

	return res
}

func (r *Result) bound(lo, hi float64) {
	bounded := math.Max(lo, math.Min(r.Score, hi))
	if bounded == r.Score {
		return
	}
	r.Reasons = append(r.Reasons, fmt.Sprintf("clamped %.1f->%.1f", r.Score, bounded))
	r.Score = bounded
	r.Clamped = true
}
