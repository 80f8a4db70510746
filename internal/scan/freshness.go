package scan

import (
	"fmt"
	"time"

	"github.com/sawpanic/signalrun/internal/market"
)

// Freshness is the age check for one symbol's bar
type Freshness struct {
	Age    time.Duration `json:"age"`
	Fresh  bool          `json:"fresh"`
	Reason string        `json:"reason,omitempty"`
}

// FreshnessGate skips symbols whose bar closed too long before the cycle
// time. A zero max age disables it.
type FreshnessGate struct {
	maxAge time.Duration
}

// NewFreshnessGate creates a gate with the MAX_BAR_AGE bound
func NewFreshnessGate(maxAge time.Duration) *FreshnessGate {
	return &FreshnessGate{maxAge: maxAge}
}

// Enabled reports whether the gate rejects anything at all
func (fg *FreshnessGate) Enabled() bool {
	return fg != nil && fg.maxAge > 0
}

// Evaluate checks bar against asOf. Bars without a timestamp, or a cycle
// without a time, cannot be judged and pass.
func (fg *FreshnessGate) Evaluate(bar market.Bar, asOf time.Time) Freshness {
	if !fg.Enabled() || bar.Timestamp.IsZero() || asOf.IsZero() {
		return Freshness{Fresh: true}
	}

	age := asOf.Sub(bar.Timestamp)
	if age > fg.maxAge {
		return Freshness{
			Age:    age,
			Reason: fmt.Sprintf("bar age %s > max %s", age, fg.maxAge),
		}
	}
	if age < 0 {
		return Freshness{
			Age:    age,
			Reason: fmt.Sprintf("bar timestamp %s after cycle time %s", bar.Timestamp.Format(time.RFC3339), asOf.Format(time.RFC3339)),
		}
	}
	return Freshness{Age: age, Fresh: true}
}
