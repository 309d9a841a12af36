package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/series"
)

// Bounds is the inclusive temperature range kept by outlier removal.
type Bounds struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// ComputeBounds derives the 1.5*IQR fences from the given values.
func ComputeBounds(values []float64) Bounds {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	return Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}
}

// CleanReport summarizes what each cleaning stage removed.
type CleanReport struct {
	RowsIn           int      `json:"rows_in"`
	CoercedToMissing int      `json:"coerced_to_missing"`
	DroppedMissing   int      `json:"dropped_missing"`
	DroppedOutliers  int      `json:"dropped_outliers"`
	Bounds           Bounds   `json:"bounds"`
	Columns          []string `json:"columns"`
}

// RowsOut returns the number of rows that survived cleaning.
func (r CleanReport) RowsOut() int {
	return r.RowsIn - r.DroppedMissing - r.DroppedOutliers
}

// Clean normalizes column names, coerces temperature to numeric, drops rows
// with missing values, parses last_updated and removes temperature outliers,
// in that order. An unparsable last_updated value is fatal.
func Clean(ds Dataset) (Dataset, CleanReport, error) {
	report := CleanReport{RowsIn: ds.Len()}

	ds, err := NormalizeColumnNames(ds)
	if err != nil {
		return Dataset{}, report, fmt.Errorf("clean: %w", err)
	}
	report.Columns = ds.Columns()
	if err := requireColumns(ds, ColTemperature, ColLastUpdated); err != nil {
		return Dataset{}, report, fmt.Errorf("clean: %w", err)
	}

	ds, report.CoercedToMissing = coerceNumeric(ds, ColTemperature)

	before := ds.Len()
	ds = DropMissing(ds)
	report.DroppedMissing = before - ds.Len()

	ds, err = normalizeTimes(ds, ColLastUpdated)
	if err != nil {
		return Dataset{}, report, fmt.Errorf("clean: %w", err)
	}

	bounds, ok := ds.Bounds()
	if !ok {
		temps, _ := ds.Floats(ColTemperature)
		bounds = ComputeBounds(temps)
	}

	before = ds.Len()
	ds = filterTemperature(ds, bounds)
	report.DroppedOutliers = before - ds.Len()
	report.Bounds = bounds

	return ds, report, nil
}

// NormalizeColumnNames trims and lower-cases every column name. Two columns
// that normalize to the same name are an ErrParse.
func NormalizeColumnNames(ds Dataset) (Dataset, error) {
	cols := ds.Columns()
	names := make([]string, len(cols))
	changed := false
	for i, c := range cols {
		names[i] = strings.ToLower(strings.TrimSpace(c))
		changed = changed || names[i] != c
	}
	if i, j, ok := duplicateName(names); ok {
		return Dataset{}, fmt.Errorf("%w: columns %q and %q both normalize to %q", ErrParse, cols[i], cols[j], names[j])
	}
	if !changed {
		return ds, nil
	}
	return ds.renamed(names), nil
}

// duplicateName returns the first pair of indexes holding the same name.
func duplicateName(names []string) (first, second int, ok bool) {
	seen := make(map[string]int, len(names))
	for i, n := range names {
		if j, dup := seen[n]; dup {
			return j, i, true
		}
		seen[n] = i
	}
	return 0, 0, false
}

// DropMissing removes every row that has a missing value in any column.
func DropMissing(ds Dataset) Dataset {
	keep := make([]bool, ds.Len())
	for i := range keep {
		keep[i] = true
	}
	for _, col := range ds.Columns() {
		for i, missing := range ds.Missing(col) {
			if missing {
				keep[i] = false
			}
		}
	}
	return ds.Subset(indexesWhere(keep))
}

// coerceNumeric converts a column to float64. Cells that were present but
// cannot be parsed become NaN; the count of such cells is returned.
func coerceNumeric(ds Dataset, col string) (Dataset, int) {
	if ds.IsNumeric(col) {
		vals, _ := ds.Floats(col)
		return ds.WithFloats(col, vals), 0
	}

	missing := ds.Missing(col)
	raw, _ := ds.Strings(col)
	vals := make([]float64, len(raw))
	coerced := 0
	for i, s := range raw {
		if missing[i] {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			vals[i] = math.NaN()
			coerced++
			continue
		}
		vals[i] = v
	}
	return ds.WithFloats(col, vals), coerced
}

// normalizeTimes rewrites a time column as RFC 3339 UTC strings.
func normalizeTimes(ds Dataset, col string) (Dataset, error) {
	times, err := ds.Times(col)
	if err != nil {
		return Dataset{}, err
	}
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Format(time.RFC3339)
	}
	return ds.with(series.New(out, series.String, col)), nil
}

func filterTemperature(ds Dataset, b Bounds) Dataset {
	temps, _ := ds.Floats(ColTemperature)
	keep := make([]bool, len(temps))
	for i, v := range temps {
		keep[i] = b.Contains(v)
	}
	return ds.Subset(indexesWhere(keep)).withBounds(b)
}

func indexesWhere(mask []bool) []int {
	idx := make([]int, 0, len(mask))
	for i, ok := range mask {
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}
