package ml

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/YuminosukeSato/scigo/metrics"
	"gonum.org/v1/gonum/mat"
)

// ErrorScores holds the regression error metrics reported per model.
type ErrorScores struct {
	MAE float64
	MSE float64
}

// Score compares predictions against the held-out targets.
func Score(yTrue, yPred []float64) (ErrorScores, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return ErrorScores{}, fmt.Errorf("%w: score: %d targets, %d predictions", ErrModelFit, len(yTrue), len(yPred))
	}
	actual := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	predicted := mat.NewVecDense(len(yPred), append([]float64(nil), yPred...))

	mae, err := metrics.MAE(actual, predicted)
	if err != nil {
		return ErrorScores{}, fmt.Errorf("mae: %w", err)
	}
	mse, err := metrics.MSE(actual, predicted)
	if err != nil {
		return ErrorScores{}, fmt.Errorf("mse: %w", err)
	}
	return ErrorScores{MAE: mae, MSE: mse}, nil
}

// TopK returns the indexes of the k largest values, largest first. Ties keep
// index order.
func TopK(values []float64, k int) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(values[b], values[a])
	})
	return idx[:min(k, len(idx))]
}
