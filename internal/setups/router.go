// Package setups routes a feature set to exactly one trade archetype.
package setups

import (
	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/features"
)

// Setup is the trade archetype a bar was classified as
type Setup string

const (
	BRK   Setup = "BRK"
	SWEEP Setup = "SWEEP"
	PULL  Setup = "PULL"
	RANGE Setup = "RANGE"
	NONE  Setup = "NONE"
)

// Style selects the setup-specific score bonus
type Style string

const (
	StyleNone         Style = ""
	StyleEMABreakout  Style = "ema_breakout"
	StyleAVWAPReclaim Style = "avwap_reclaim"
	StyleImpulsePB    Style = "impulse_pb"
)

// Match is the router's verdict for one feature set
type Match struct {
	Setup Setup `json:"setup"`
	Style Style `json:"style,omitempty"`
}

// Matcher recognizes one archetype. Alternate rule sets are added as new
// matchers rather than parallel strategy code.
type Matcher interface {
	Name() Setup
	Match(fs features.FeatureSet) (Style, bool)
}

// Router evaluates matchers in precedence order; the first match wins
type Router struct {
	matchers []Matcher
}

// NewRouter builds the default BRK > SWEEP > PULL > RANGE chain
func NewRouter(cfg *config.Config) *Router {
	return NewRouterWith(
		Breakout{},
		Sweep{Rule: SweepRuleFromConfig(cfg)},
		Pullback{},
		Range{BandPct: cfg.RangeBandPct},
	)
}

// NewRouterWith builds a router over a custom matcher chain
func NewRouterWith(matchers ...Matcher) *Router {
	return &Router{matchers: matchers}
}

// Route returns the first matching archetype or NONE
func (r *Router) Route(fs features.FeatureSet) Match {
	for _, m := range r.matchers {
		if style, ok := m.Match(fs); ok {
			return Match{Setup: m.Name(), Style: style}
		}
	}
	return Match{Setup: NONE}
}

// Candidates lists every archetype whose conditions hold, in precedence order.
// Used to explain tie-breaks; routing itself only takes the first.
func (r *Router) Candidates(fs features.FeatureSet) []Setup {
	var out []Setup
	for _, m := range r.matchers {
		if _, ok := m.Match(fs); ok {
			out = append(out, m.Name())
		}
	}
	return out
}
