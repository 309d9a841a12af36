package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Quantile returns the p-quantile of values using linear interpolation between
// the closest ranks (Hyndman-Fan type 7). NaN values are ignored. It returns
// NaN when no values remain.
func Quantile(values []float64, p float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	slices.Sort(sorted)

	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// GroupMean is the mean of a value column for one group.
type GroupMean struct {
	Group string
	Mean  float64
	Count int
}

// GroupMeans averages value per distinct group, sorted by ascending mean.
// Ties keep alphabetical group order.
func GroupMeans(ds Dataset, group, value string) ([]GroupMean, error) {
	if err := requireColumns(ds, group, value); err != nil {
		return nil, err
	}
	keys, _ := ds.Strings(group)
	vals, _ := ds.Floats(value)

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, k := range keys {
		if math.IsNaN(vals[i]) {
			continue
		}
		sums[k] += vals[i]
		counts[k]++
	}

	out := make([]GroupMean, 0, len(sums))
	for k, sum := range sums {
		out = append(out, GroupMean{Group: k, Mean: sum / float64(counts[k]), Count: counts[k]})
	}
	slices.SortFunc(out, func(a, b GroupMean) int {
		if c := cmp.Compare(a.Mean, b.Mean); c != 0 {
			return c
		}
		return cmp.Compare(a.Group, b.Group)
	})
	return out, nil
}

// CorrelationMatrix holds pairwise Pearson coefficients; Values[i][j] is the
// correlation between Columns[i] and Columns[j].
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// SourceNumericColumns returns the numeric columns that came from the input
// file, excluding the derived timestamp and anomaly columns.
func SourceNumericColumns(ds Dataset) []string {
	var cols []string
	for _, c := range ds.NumericColumns() {
		if !derivedColumns[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// Correlation computes the Pearson matrix over every source numeric column,
// using the rows where both values of a pair are present. A constant column
// correlates as NaN with everything, itself included.
func Correlation(ds Dataset) (CorrelationMatrix, error) {
	cols := SourceNumericColumns(ds)
	if len(cols) < 2 {
		return CorrelationMatrix{}, fmt.Errorf("correlation: need at least 2 numeric columns, have %d", len(cols))
	}

	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i], _ = ds.Floats(c)
	}

	values := make([][]float64, len(cols))
	for i := range cols {
		values[i] = make([]float64, len(cols))
		for j := range cols {
			x, y := completePairs(data[i], data[j])
			values[i][j] = stat.Correlation(x, y, nil)
		}
	}
	return CorrelationMatrix{Columns: cols, Values: values}, nil
}

// completePairs drops every index where either value is NaN.
func completePairs(a, b []float64) (x, y []float64) {
	x = make([]float64, 0, len(a))
	y = make([]float64, 0, len(b))
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		x = append(x, a[k])
		y = append(y, b[k])
	}
	return x, y
}

// ColumnSummary is the numeric description of one column.
type ColumnSummary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarizes every numeric column, ignoring missing values.
func Describe(ds Dataset) []ColumnSummary {
	var out []ColumnSummary
	for _, col := range ds.NumericColumns() {
		raw, _ := ds.Floats(col)
		vals := make([]float64, 0, len(raw))
		for _, v := range raw {
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		s := ColumnSummary{Column: col, Count: len(vals)}
		if len(vals) > 0 {
			s.Mean = stat.Mean(vals, nil)
			s.Std = math.NaN()
			if len(vals) > 1 {
				s.Std = stat.StdDev(vals, nil)
			}
			s.Min = floats.Min(vals)
			s.Max = floats.Max(vals)
			s.Q25 = Quantile(vals, 0.25)
			s.Median = Quantile(vals, 0.5)
			s.Q75 = Quantile(vals, 0.75)
		}
		out = append(out, s)
	}
	return out
}

// ColumnCount pairs a column with a count.
type ColumnCount struct {
	Column string
	Count  int
}

// MissingCounts returns the number of missing cells per column in file order.
func MissingCounts(ds Dataset) []ColumnCount {
	cols := ds.Columns()
	out := make([]ColumnCount, 0, len(cols))
	for _, c := range cols {
		n := 0
		for _, m := range ds.Missing(c) {
			if m {
				n++
			}
		}
		out = append(out, ColumnCount{Column: c, Count: n})
	}
	return out
}

// KDE is a Gaussian kernel density estimate with Scott's bandwidth.
type KDE struct {
	samples   []float64
	bandwidth float64
}

// NewKDE fits a density estimate. It needs at least two distinct samples.
func NewKDE(samples []float64) (KDE, error) {
	if len(samples) < 2 {
		return KDE{}, fmt.Errorf("kde: need at least 2 samples, have %d", len(samples))
	}
	sd := stat.StdDev(samples, nil)
	if sd == 0 || math.IsNaN(sd) {
		return KDE{}, fmt.Errorf("kde: samples have zero variance")
	}
	return KDE{
		samples:   slices.Clone(samples),
		bandwidth: sd * math.Pow(float64(len(samples)), -0.2),
	}, nil
}

// Bandwidth returns the kernel standard deviation.
func (k KDE) Bandwidth() float64 {
	return k.bandwidth
}

// Density evaluates the estimate at x.
func (k KDE) Density(x float64) float64 {
	norm := 1 / (float64(len(k.samples)) * k.bandwidth * math.Sqrt(2*math.Pi))
	var sum float64
	for _, s := range k.samples {
		z := (x - s) / k.bandwidth
		sum += math.Exp(-0.5 * z * z)
	}
	return sum * norm
}
