package regime

import (
	"testing"

	"github.com/sawpanic/signalrun/internal/config"
)

func TestDetectForcedModes(t *testing.T) {
	inputs := []struct{ rvol, breadth float64 }{
		{0.1, 0.1}, {0.75, 0.55}, {3.0, 0.95}, {0, 0},
	}

	for _, mode := range []struct {
		name     string
		expected Regime
	}{{config.ModeTrend, Trend}, {config.ModeChop, Chop}} {
		cfg := config.Default()
		cfg.RegimeMode = mode.name
		for _, in := range inputs {
			if got := Detect(cfg, in.rvol, in.breadth); got != mode.expected {
				t.Errorf("mode %s with rvol=%.2f breadth=%.2f: expected %s, got %s",
					mode.name, in.rvol, in.breadth, mode.expected, got)
			}
		}
	}
}

func TestDetectAuto(t *testing.T) {
	cfg := config.Default()

	testCases := []struct {
		rvol, breadth float64
		expected      Regime
		description   string
	}{
		{1.0, 0.70, Trend, "both above thresholds"},
		{0.75, 0.55, Trend, "thresholds are inclusive for trend"},
		{0.74, 0.70, Chop, "weak BTC volume alone means chop"},
		{1.2, 0.54, Chop, "weak breadth alone means chop"},
		{0.5, 0.3, Chop, "both weak"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if got := Detect(cfg, tc.rvol, tc.breadth); got != tc.expected {
				t.Errorf("%s: expected %s, got %s", tc.description, tc.expected, got)
			}
		})
	}
}

func TestThresholdRouterSelect(t *testing.T) {
	cfg := config.Default()
	cfg.RVOLMinTrend = 1.1
	cfg.RVOLMinChop = 1.6
	cfg.MinBarQuoteVolUSDTrend = 40000
	cfg.MinBarQuoteVolUSDChop = 90000
	cfg.ScoreCutoffTrend = 60
	cfg.ScoreCutoffChop = 75

	router := NewThresholdRouter(cfg)

	trend := router.Select(Trend)
	if trend.RVOLMin != 1.1 || trend.MinBarQuoteVolUSD != 40000 || trend.ScoreCutoff != 60 {
		t.Errorf("unexpected trend thresholds: %+v", trend)
	}

	chop := router.Select(Chop)
	if chop.RVOLMin != 1.6 || chop.MinBarQuoteVolUSD != 90000 || chop.ScoreCutoff != 75 {
		t.Errorf("unexpected chop thresholds: %+v", chop)
	}
}

func TestDescribeThresholds(t *testing.T) {
	router := NewThresholdRouter(config.Default())
	desc := router.Describe(Chop)
	expected := "Regime: chop | RVOL: ≥1.30 | Bar quote vol: ≥$100k | Score cutoff: ≥72.0"
	if desc != expected {
		t.Errorf("expected %q, got %q", expected, desc)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, r := range []Regime{Trend, Chop} {
		text, err := r.MarshalText()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		var back Regime
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if back != r {
			t.Errorf("Expected %s, got %s", r, back)
		}
	}

	if _, err := Parse("sideways"); err == nil {
		t.Error("Expected error for unknown regime")
	}
}
