package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Split holds the row indexes of a train/test partition.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles n row indexes with the given seed and assigns the
// first ceil(testFraction*n) of them to the test set.
func TrainTestSplit(n int, testFraction float64, seed int64) (Split, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return Split{}, fmt.Errorf("%w: test fraction %v outside (0, 1)", ErrModelFit, testFraction)
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest == 0 || n-nTest == 0 {
		return Split{}, fmt.Errorf("%w: cannot split %d rows with test fraction %v", ErrModelFit, n, testFraction)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n) //nolint:gosec // reproducible split
	return Split{Train: perm[nTest:], Test: perm[:nTest]}, nil
}

// Rows returns a new matrix holding the given rows of x, in order.
func Rows(x mat.Matrix, idx []int) *mat.Dense {
	_, c := x.Dims()
	if len(idx) == 0 || c == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, x.At(r, j))
		}
	}
	return out
}

// Pick returns the elements of v at the given indexes, in order.
func Pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

// Columns builds a row-major sample matrix from per-feature columns of equal length.
func Columns(cols ...[]float64) *mat.Dense {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(cols[0]), len(cols), nil)
	for j, col := range cols {
		out.SetCol(j, col)
	}
	return out
}

func isEmpty(x mat.Matrix) bool {
	if d, ok := x.(*mat.Dense); ok && d.IsEmpty() {
		return true
	}
	r, _ := x.Dims()
	return r == 0
}
