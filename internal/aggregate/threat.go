package aggregate

import (
	"math"

	"github.com/crimson-sun/watchtower/internal/model"
)

// Threat summarizes the current alerts.
type Threat struct {
	Level    float64 // in [0, 0.9]
	Active   int
	Critical int
	High     int
}

const (
	criticalWeight = 0.3
	highWeight     = 0.1
	levelDivisor   = 10
	levelCap       = 0.9
)

// DeriveThreat computes the dashboard threat level from alert severities:
// min(0.9, (critical*0.3 + high*0.1) / 10). Active threats are critical plus
// high alerts.
func DeriveThreat(alerts []model.Alert) Threat {
	var t Threat
	for _, a := range alerts {
		switch a.Severity() {
		case model.SeverityCritical:
			t.Critical++
		case model.SeverityHigh:
			t.High++
		}
	}
	t.Active = t.Critical + t.High
	t.Level = math.Min(levelCap, (float64(t.Critical)*criticalWeight+float64(t.High)*highWeight)/levelDivisor)
	return t
}
