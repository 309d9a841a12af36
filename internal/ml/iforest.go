package ml

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const eulerGamma = 0.5772156649015329

// Isolation forest labels.
const (
	Inlier  = 1
	Outlier = -1
)

// IsolationForest scores samples by how quickly random axis-aligned splits
// isolate them. Shorter average paths mean more anomalous samples.
type IsolationForest struct {
	NEstimators   int
	MaxSamples    int
	Contamination float64
	Seed          int64

	sampleSize int
	trees      [][]isoNode
	threshold  float64
}

type isoNode struct {
	feature   int // -1 marks a leaf
	threshold float64
	left      int
	right     int
	size      int
}

// NewIsolationForest returns a forest of 100 trees over at most 256 samples
// each that flags 5% of the training data.
func NewIsolationForest(seed int64) *IsolationForest {
	return &IsolationForest{
		NEstimators:   100,
		MaxSamples:    256,
		Contamination: 0.05,
		Seed:          seed,
	}
}

// Fit grows the trees and fixes the score threshold so that the
// Contamination share of the training rows lies above it.
func (f *IsolationForest) Fit(x mat.Matrix) error {
	r, _ := x.Dims()
	if isEmpty(x) {
		return fmt.Errorf("%w: isolation forest: no samples", ErrModelFit)
	}
	if f.NEstimators <= 0 || f.MaxSamples <= 0 {
		return fmt.Errorf("%w: isolation forest: %d estimators over %d samples", ErrModelFit, f.NEstimators, f.MaxSamples)
	}
	if f.Contamination <= 0 || f.Contamination > 0.5 {
		return fmt.Errorf("%w: isolation forest: contamination %v outside (0, 0.5]", ErrModelFit, f.Contamination)
	}

	rng := rand.New(rand.NewSource(f.Seed)) //nolint:gosec // reproducible ensembles
	cols := featureMajor(x)
	f.sampleSize = min(f.MaxSamples, r)
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(f.sampleSize), 2))))

	f.trees = make([][]isoNode, f.NEstimators)
	for i := range f.trees {
		sample := rng.Perm(r)[:f.sampleSize]
		b := isoBuilder{cols: cols, rng: rng, limit: heightLimit}
		b.build(sample, 0)
		f.trees[i] = b.nodes
	}

	scores := f.Scores(x)
	f.threshold = domain.Quantile(scores, 1-f.Contamination)
	return nil
}

// Scores returns the anomaly score in (0, 1] of every row of x.
func (f *IsolationForest) Scores(x mat.Matrix) []float64 {
	r, _ := x.Dims()
	norm := averagePathLength(f.sampleSize)
	out := make([]float64, r)
	for i := range out {
		var total float64
		for _, tree := range f.trees {
			total += pathLength(tree, x, i)
		}
		mean := total / float64(len(f.trees))
		if norm == 0 {
			out[i] = 1
			continue
		}
		out[i] = math.Pow(2, -mean/norm)
	}
	return out
}

// Predict labels each row Outlier when its score exceeds the fitted threshold
// and Inlier otherwise.
func (f *IsolationForest) Predict(x mat.Matrix) []int {
	scores := f.Scores(x)
	out := make([]int, len(scores))
	for i, s := range scores {
		out[i] = Inlier
		if s > f.threshold {
			out[i] = Outlier
		}
	}
	return out
}

// Threshold returns the score above which rows are labelled Outlier.
func (f *IsolationForest) Threshold() float64 {
	return f.threshold
}

type isoBuilder struct {
	cols  [][]float64
	rng   *rand.Rand
	limit int
	nodes []isoNode
}

func (b *isoBuilder) build(samples []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, isoNode{feature: -1, size: len(samples)})
	if depth >= b.limit || len(samples) <= 1 {
		return id
	}

	// Only features that vary within the node can split it.
	var candidates []int
	lows := make([]float64, len(b.cols))
	highs := make([]float64, len(b.cols))
	vals := make([]float64, len(samples))
	for j, col := range b.cols {
		for k, s := range samples {
			vals[k] = col[s]
		}
		lows[j], highs[j] = floats.Min(vals), floats.Max(vals)
		if highs[j] > lows[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return id
	}

	feature := candidates[b.rng.Intn(len(candidates))]
	threshold := lows[feature] + b.rng.Float64()*(highs[feature]-lows[feature])

	var left, right []int
	for _, s := range samples {
		if b.cols[feature][s] < threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = isoNode{feature: feature, threshold: threshold, left: l, right: r, size: len(samples)}
	return id
}

func pathLength(tree []isoNode, x mat.Matrix, row int) float64 {
	n := tree[0]
	depth := 0
	for n.feature >= 0 {
		if x.At(row, n.feature) < n.threshold {
			n = tree[n.left]
		} else {
			n = tree[n.right]
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
