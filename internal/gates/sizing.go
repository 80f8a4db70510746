package gates

import (
	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/features"
)

// SizeMultiplier returns the position-size factor for a signal that cleared
// the guards. Reductions stack multiplicatively.
func SizeMultiplier(fs features.FeatureSet, gr *GuardResult, cfg *config.Config) float64 {
	mult := 1.0
	if gr != nil && gr.ExceptionTaken {
		mult *= cfg.ExcPositionSizeMult
	}
	if fs.WickReclaim && cfg.ReclaimUseWick {
		mult *= cfg.ReclaimWickSizeMult
	}
	return mult
}
