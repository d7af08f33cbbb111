package scroll

import (
	"time"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"gonum.org/v1/gonum/stat"
)

const (
	highVelocity   = 600 // px/s average
	minDwellPauses = 5   // fewer zero-velocity seconds than this means no dwell

	velocityRisk  = 40
	dwellRisk     = 40
	lateNightRisk = 20

	// HighRiskThreshold is the risk above which a trace is presented as high risk
	HighRiskThreshold = 60
)

// Reasons reported by DetectDoomscrolling
const (
	ReasonHighVelocity = "High Velocity"
	ReasonZeroDwell    = "Zero Dwell Time"
	ReasonLateNight    = "Late Night Context"
)

// IsLateNight reports whether t falls between 22:00 and 04:59.
func IsLateNight(t time.Time) bool {
	h := t.Hour()
	return h >= 22 || h <= 4
}

// DetectDoomscrolling scores a trace. The checks are cumulative; the late
// night context only escalates a trace that already triggered another check.
func DetectDoomscrolling(trace types.ScrollTrace, now time.Time) types.DoomscrollResult {
	velocities := trace.Velocities()

	var avgSpeed float64
	if len(velocities) > 0 {
		avgSpeed = stat.Mean(velocities, nil)
	}

	pauses := 0
	for _, v := range velocities {
		if v == 0 {
			pauses++
		}
	}

	risk := 0
	reasons := []string{}

	if avgSpeed > highVelocity {
		risk += velocityRisk
		reasons = append(reasons, ReasonHighVelocity)
	}
	if pauses < minDwellPauses {
		risk += dwellRisk
		reasons = append(reasons, ReasonZeroDwell)
	}
	if IsLateNight(now) && risk > 0 {
		risk += lateNightRisk
		reasons = append(reasons, ReasonLateNight)
	}

	return types.DoomscrollResult{
		Risk:    min(100, risk),
		Reasons: reasons,
	}
}

// IsHighRisk reports whether a risk score should be presented as high risk.
func IsHighRisk(risk int) bool {
	return risk > HighRiskThreshold
}
