package ml

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GradientBoostingRegressor fits shallow trees to the residuals of the
// running prediction under squared-error loss.
type GradientBoostingRegressor struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Seed         int64

	init  float64
	trees []*regressionTree
}

// NewGradientBoostingRegressor returns 100 stages of depth-3 trees with a 0.1 learning rate.
func NewGradientBoostingRegressor(seed int64) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:  100,
		LearningRate: 0.1,
		MaxDepth:     3,
		Seed:         seed,
	}
}

// Fit runs the boosting stages. The initial prediction is the training mean.
func (g *GradientBoostingRegressor) Fit(x mat.Matrix, y []float64) error {
	r, _ := x.Dims()
	if isEmpty(x) || r != len(y) {
		return fmt.Errorf("%w: gradient boosting: %d samples, %d targets", ErrModelFit, r, len(y))
	}
	if g.NEstimators <= 0 || g.LearningRate <= 0 {
		return fmt.Errorf("%w: gradient boosting: %d estimators at rate %v", ErrModelFit, g.NEstimators, g.LearningRate)
	}

	rng := rand.New(rand.NewSource(g.Seed)) //nolint:gosec // reproducible ensembles
	cols := featureMajor(x)
	samples := sequence(r)

	g.init = stat.Mean(y, nil)
	pred := make([]float64, r)
	for i := range pred {
		pred[i] = g.init
	}

	residual := make([]float64, r)
	g.trees = make([]*regressionTree, 0, g.NEstimators)
	for range g.NEstimators {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		tree := newRegressionTree(g.MaxDepth)
		tree.fit(cols, residual, samples, rng)
		g.trees = append(g.trees, tree)
		for i := range pred {
			pred[i] += g.LearningRate * tree.predictRow(x, i)
		}
	}
	return nil
}

// Predict returns the boosted prediction for every row of x.
func (g *GradientBoostingRegressor) Predict(x mat.Matrix) []float64 {
	r, _ := x.Dims()
	out := make([]float64, r)
	for i := range out {
		v := g.init
		for _, t := range g.trees {
			v += g.LearningRate * t.predictRow(x, i)
		}
		out[i] = v
	}
	return out
}
