package regime

import (
	"fmt"
	"strings"

	"github.com/sawpanic/signalrun/internal/config"
)

// Regime represents the current market regime classification
type Regime int

const (
	Chop Regime = iota
	Trend
)

func (r Regime) String() string {
	switch r {
	case Trend:
		return "trend"
	case Chop:
		return "chop"
	default:
		return "unknown"
	}
}

// MarshalText renders the regime by name in JSON and YAML output
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (r *Regime) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Parse converts a stored regime name back to a Regime
func Parse(s string) (Regime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trend":
		return Trend, nil
	case "chop":
		return Chop, nil
	}
	return Chop, fmt.Errorf("unknown regime %q", s)
}

// Detect classifies the regime from BTC relative volume and universe breadth.
// A forced mode wins over the numbers; in auto mode either weak input means chop.
func Detect(cfg *config.Config, rvolBTC, breadth float64) Regime {
	switch cfg.RegimeMode {
	case config.ModeTrend:
		return Trend
	case config.ModeChop:
		return Chop
	}

	if rvolBTC < cfg.RegimeChopRVOL || breadth < cfg.RegimeChopBreadth {
		return Chop
	}
	return Trend
}
