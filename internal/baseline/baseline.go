// Package baseline generates the synthetic behavioral table used to calibrate
// the anomaly model.
package baseline

import (
	"fmt"
	"math/rand/v2"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultDays is the number of synthetic days in a baseline
	DefaultDays = 30
	// DefaultSeed keeps the baseline, and everything fitted on it, reproducible
	DefaultSeed uint64 = 42
)

// Column distributions. Order matters: columns are drawn one after another
// from a single source, so reordering them changes every value.
var (
	snoozeDelta   = distribution{mean: 0.5, stddev: 0.2}
	dailySteps    = distribution{mean: 7000, stddev: 800}
	appSwitchRate = distribution{mean: 40, stddev: 5}
	pickupCount   = distribution{mean: 80, stddev: 10}
)

type distribution struct {
	mean   float64
	stddev float64
}

// NewSource returns the deterministic random source used by the generators
// in this module.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed)
}

// Generate returns a baseline of the given number of days drawn with the
// given seed. Generated values are not clamped, so a very unlucky draw can
// produce negative steps; that is accepted noise.
func Generate(days int, seed uint64) (types.BaselineSet, error) {
	if days <= 0 {
		return nil, fmt.Errorf("baseline days must be positive, got %d", days)
	}

	src := NewSource(seed)

	snooze := draw(snoozeDelta, days, src)
	steps := draw(dailySteps, days, src)
	switches := draw(appSwitchRate, days, src)
	pickups := draw(pickupCount, days, src)

	set := make(types.BaselineSet, days)
	for i := range set {
		set[i] = types.BehavioralSample{
			SnoozeDelta:   snooze[i],
			DailySteps:    steps[i],
			AppSwitchRate: switches[i],
			PickupCount:   pickups[i],
		}
	}

	return set, nil
}

func draw(d distribution, n int, src rand.Source) []float64 {
	dist := distuv.Normal{Mu: d.mean, Sigma: d.stddev, Src: src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}
