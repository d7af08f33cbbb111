// Package scroll simulates per-second scroll velocity traces and scores them
// for compulsive "doomscrolling" patterns.
package scroll

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultDuration is the trace length in seconds
	DefaultDuration = 60
	// DefaultSeed makes repeated generation with the same knobs bit-identical
	DefaultSeed uint64 = 42

	// ContinuousThreshold is the intensity at which the trace switches from
	// sparse taps to a continuous noisy scroll.
	ContinuousThreshold = 300

	idleProbability = 0.7
	tapMinVelocity  = 50
	tapMaxVelocity  = 400 // exclusive
	noisePerUnit    = 5   // stddev of the continuous regime per unit of erraticness
)

// ErrInvalidKnob is returned when a generation knob is out of range
var ErrInvalidKnob = errors.New("invalid scroll pattern knob")

// GeneratePattern builds a scroll trace. Every call starts from a fresh
// source seeded with seed, so identical arguments always produce the same
// trace.
func GeneratePattern(intensity, erraticness float64, durationSeconds int, seed uint64) (types.ScrollTrace, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidKnob, durationSeconds)
	}
	if erraticness < 0 || math.IsNaN(erraticness) || math.IsInf(erraticness, 0) {
		return nil, fmt.Errorf("%w: erraticness must be a finite non-negative number, got %v", ErrInvalidKnob, erraticness)
	}
	if math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return nil, fmt.Errorf("%w: intensity must be a finite number, got %v", ErrInvalidKnob, intensity)
	}

	src := rand.NewPCG(seed, seed)
	trace := make(types.ScrollTrace, durationSeconds)

	if intensity < ContinuousThreshold {
		rng := rand.New(src)
		for i := range trace {
			v := 0.0
			if rng.Float64() > idleProbability {
				v = float64(tapMinVelocity + rng.IntN(tapMaxVelocity-tapMinVelocity))
			}
			trace[i] = types.ScrollPoint{Second: i, Velocity: v}
		}
		return trace, nil
	}

	noise := distuv.Normal{Mu: 0, Sigma: erraticness * noisePerUnit, Src: src}
	for i := range trace {
		trace[i] = types.ScrollPoint{Second: i, Velocity: math.Abs(intensity + noise.Rand())}
	}
	return trace, nil
}
