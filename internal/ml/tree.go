package ml

import (
	"cmp"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/mat"
)

type treeNode struct {
	feature   int // -1 marks a leaf
	threshold float64
	left      int
	right     int
	value     float64
}

// regressionTree is a CART tree minimizing squared error. Samples with
// feature <= threshold go left.
type regressionTree struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int

	nodes []treeNode

	// importances accumulates the squared-error decrease of every split, per feature.
	importances []float64

	cols [][]float64
	y    []float64
	rng  *rand.Rand
}

func newRegressionTree(maxDepth int) *regressionTree {
	return &regressionTree{maxDepth: maxDepth, minSamplesSplit: 2}
}

// fit grows the tree on the given sample indexes. cols is feature-major.
// Indexes may repeat, as in a bootstrap sample.
func (t *regressionTree) fit(cols [][]float64, y []float64, samples []int, rng *rand.Rand) {
	t.cols, t.y, t.rng = cols, y, rng
	t.nodes = t.nodes[:0]
	t.importances = make([]float64, len(cols))
	t.build(slices.Clone(samples), 0)
	t.cols, t.y, t.rng = nil, nil, nil
}

func (t *regressionTree) build(samples []int, depth int) int {
	mean, sse := meanSSE(t.y, samples)
	id := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{feature: -1, value: mean})

	if len(samples) < t.minSamplesSplit || sse <= 0 || (t.maxDepth > 0 && depth >= t.maxDepth) {
		return id
	}

	feature, threshold, gain, ok := t.bestSplit(samples, sse)
	if !ok {
		return id
	}

	col := t.cols[feature]
	var left, right []int
	for _, s := range samples {
		if col[s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	t.importances[feature] += gain

	l := t.build(left, depth+1)
	r := t.build(right, depth+1)
	t.nodes[id] = treeNode{feature: feature, threshold: threshold, left: l, right: r, value: mean}
	return id
}

// bestSplit scans every feature, in random order, for the threshold with the
// largest squared-error decrease. The first feature reaching the best gain wins.
func (t *regressionTree) bestSplit(samples []int, sse float64) (feature int, threshold, gain float64, ok bool) {
	sorted := slices.Clone(samples)
	n := float64(len(samples))

	for _, f := range t.rng.Perm(len(t.cols)) {
		col := t.cols[f]
		slices.SortFunc(sorted, func(a, b int) int { return cmp.Compare(col[a], col[b]) })

		var totalSum, totalSq float64
		for _, s := range sorted {
			totalSum += t.y[s]
			totalSq += t.y[s] * t.y[s]
		}

		var leftSum, leftSq float64
		for i := 1; i < len(sorted); i++ {
			prev := sorted[i-1]
			leftSum += t.y[prev]
			leftSq += t.y[prev] * t.y[prev]

			lo, hi := col[prev], col[sorted[i]]
			if lo == hi {
				continue
			}
			nl := float64(i)
			nr := n - nl
			rightSum := totalSum - leftSum
			sseLeft := leftSq - leftSum*leftSum/nl
			sseRight := (totalSq - leftSq) - rightSum*rightSum/nr

			if g := sse - sseLeft - sseRight; g > gain {
				mid := lo + (hi-lo)/2
				if mid >= hi {
					mid = lo
				}
				feature, threshold, gain, ok = f, mid, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

func (t *regressionTree) predictRow(x mat.Matrix, row int) float64 {
	n := t.nodes[0]
	for n.feature >= 0 {
		if x.At(row, n.feature) <= n.threshold {
			n = t.nodes[n.left]
		} else {
			n = t.nodes[n.right]
		}
	}
	return n.value
}

// normalizedImportances scales the accumulated decreases to sum to one. A tree
// that never split reports all zeros.
func (t *regressionTree) normalizedImportances() []float64 {
	out := slices.Clone(t.importances)
	var total float64
	for _, v := range out {
		total += v
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func meanSSE(y []float64, samples []int) (mean, sse float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	for _, s := range samples {
		mean += y[s]
	}
	mean /= float64(len(samples))
	for _, s := range samples {
		d := y[s] - mean
		sse += d * d
	}
	return mean, sse
}

// featureMajor copies x into one slice per column.
func featureMajor(x mat.Matrix) [][]float64 {
	_, c := x.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}
	return cols
}

func sequence(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
