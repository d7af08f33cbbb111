// Package anomaly scores behavioral samples against a fitted isolation forest.
//
// The forest is fitted once on a baseline and is immutable afterwards, so a
// single *IsolationForest can be shared by any number of concurrent readers.
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"gonum.org/v1/gonum/stat"
)

// eulerGamma is the Euler–Mascheroni constant used by the harmonic number
// approximation in averagePathLength.
const eulerGamma = 0.5772156649015329

// Params controls how the forest is grown.
type Params struct {
	Trees         int     // ensemble size
	Contamination float64 // expected outlier fraction in the training data
	MaxSamples    int     // sub-sample size per tree, capped at the baseline size
	Seed          uint64
}

// DefaultParams returns the parameters the stability index was calibrated with.
func DefaultParams() Params {
	return Params{
		Trees:         100,
		Contamination: 0.1,
		MaxSamples:    256,
		Seed:          42,
	}
}

func (p Params) validate() error {
	if p.Trees < 1 {
		return fmt.Errorf("forest needs at least one tree, got %d", p.Trees)
	}
	if p.Contamination <= 0 || p.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", p.Contamination)
	}
	if p.MaxSamples < 2 {
		return fmt.Errorf("max samples must be at least 2, got %d", p.MaxSamples)
	}
	return nil
}

// ErrEmptyBaseline is returned when Fit is given no rows
var ErrEmptyBaseline = errors.New("cannot fit an anomaly model on an empty baseline")

// node is either an internal split (left != nil) or a leaf holding the
// number of training rows that reached it.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	size      int
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// IsolationForest is a fitted, read-only outlier model.
type IsolationForest struct {
	params     Params
	trees      []*node
	sampleSize int
	offset     float64
}

// Fit grows a forest on the baseline. The same baseline and seed always
// produce the same forest.
func Fit(baseline types.BaselineSet, p Params) (*IsolationForest, error) {
	if len(baseline) == 0 {
		return nil, ErrEmptyBaseline
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	data := baseline.Matrix()
	for i, row := range data {
		if err := types.ValidateFeatures(row); err != nil {
			return nil, fmt.Errorf("baseline row %d: %w", i, err)
		}
	}

	psi := min(p.MaxSamples, len(data))
	f := &IsolationForest{
		params:     p,
		trees:      make([]*node, p.Trees),
		sampleSize: psi,
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	heightLimit := int(math.Ceil(math.Log2(float64(max(psi, 2)))))

	for t := range f.trees {
		idx := rng.Perm(len(data))[:psi]
		rows := make([][]float64, psi)
		for i, j := range idx {
			rows[i] = data[j]
		}
		f.trees[t] = grow(rows, 0, heightLimit, rng)
	}

	// The decision offset puts the contamination quantile of the training
	// scores at zero, so inliers score positive.
	train := make([]float64, len(data))
	for i, row := range data {
		train[i] = f.rawScore(row)
	}
	sort.Float64s(train)
	f.offset = stat.Quantile(p.Contamination, stat.LinInterp, train, nil)

	return f, nil
}

func grow(rows [][]float64, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	// Try features in random order and split on the first one that still
	// varies within this node.
	for _, feature := range rng.Perm(types.FeatureCount) {
		lo, hi := rows[0][feature], rows[0][feature]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[feature])
			hi = math.Max(hi, r[feature])
		}
		if lo == hi {
			continue
		}

		threshold := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, r := range rows {
			if r[feature] < threshold {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}

		return &node{
			feature:   feature,
			threshold: threshold,
			left:      grow(left, depth+1, limit, rng),
			right:     grow(right, depth+1, limit, rng),
			size:      len(rows),
		}
	}

	return &node{size: len(rows)}
}

// Score returns the decision score for a sample. Larger values are more
// typical of the baseline; in practice scores sit roughly in [-0.5, 0.5].
func (f *IsolationForest) Score(sample types.BehavioralSample) (float64, error) {
	return f.ScoreFeatures(sample.Features())
}

// ScoreFeatures scores a raw feature vector after checking its shape.
func (f *IsolationForest) ScoreFeatures(features []float64) (float64, error) {
	if err := types.ValidateFeatures(features); err != nil {
		return 0, err
	}
	return f.rawScore(features) - f.offset, nil
}

// Offset is the threshold subtracted from raw scores.
func (f *IsolationForest) Offset() float64 {
	return f.offset
}

// Params returns the parameters the forest was grown with.
func (f *IsolationForest) Params() Params {
	return f.params
}

// rawScore is the negated isolation anomaly score, in [-1, 0].
func (f *IsolationForest) rawScore(x []float64) float64 {
	depths := make([]float64, len(f.trees))
	for i, t := range f.trees {
		depths[i] = pathLength(x, t, 0)
	}
	return -math.Pow(2, -stat.Mean(depths, nil)/averagePathLength(f.sampleSize))
}

func pathLength(x []float64, n *node, depth int) float64 {
	for !n.isLeaf() {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
