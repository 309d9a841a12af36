package ml

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor averages fully grown trees, each fitted to a
// bootstrap sample of the training rows using every feature.
type RandomForestRegressor struct {
	NEstimators int
	MaxDepth    int // 0 grows each tree until its leaves are pure
	Seed        int64

	trees       []*regressionTree
	importances []float64
}

// NewRandomForestRegressor returns a forest with 100 trees.
func NewRandomForestRegressor(seed int64) *RandomForestRegressor {
	return &RandomForestRegressor{NEstimators: 100, Seed: seed}
}

// Fit grows the forest.
func (f *RandomForestRegressor) Fit(x mat.Matrix, y []float64) error {
	r, c := x.Dims()
	if isEmpty(x) || r != len(y) {
		return fmt.Errorf("%w: random forest: %d samples, %d targets", ErrModelFit, r, len(y))
	}
	if f.NEstimators <= 0 {
		return fmt.Errorf("%w: random forest: %d estimators", ErrModelFit, f.NEstimators)
	}

	rng := rand.New(rand.NewSource(f.Seed)) //nolint:gosec // reproducible ensembles
	cols := featureMajor(x)
	f.trees = make([]*regressionTree, f.NEstimators)
	f.importances = make([]float64, c)

	bootstrap := make([]int, r)
	for i := range f.trees {
		for j := range bootstrap {
			bootstrap[j] = rng.Intn(r)
		}
		tree := newRegressionTree(f.MaxDepth)
		tree.fit(cols, y, bootstrap, rng)
		f.trees[i] = tree
		for j, v := range tree.normalizedImportances() {
			f.importances[j] += v
		}
	}

	var total float64
	for _, v := range f.importances {
		total += v
	}
	if total > 0 {
		for j := range f.importances {
			f.importances[j] /= total
		}
	}
	return nil
}

// Predict averages the trees' predictions for every row of x.
func (f *RandomForestRegressor) Predict(x mat.Matrix) []float64 {
	r, _ := x.Dims()
	out := make([]float64, r)
	for i := range out {
		var sum float64
		for _, t := range f.trees {
			sum += t.predictRow(x, i)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out
}

// FeatureImportances returns the mean decrease in squared error per feature,
// normalized to sum to one.
func (f *RandomForestRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), f.importances...)
}
