package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// timeLayouts are tried in order when parsing last_updated. Zone-less layouts
// are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// Dataset is an immutable table of weather records backed by a gota DataFrame.
// Methods that change the table return a new Dataset.
type Dataset struct {
	frame  dataframe.DataFrame
	bounds *Bounds
}

// NewDataset wraps a DataFrame.
func NewDataset(frame dataframe.DataFrame) Dataset {
	return Dataset{frame: frame}
}

// Frame returns the underlying DataFrame.
func (d Dataset) Frame() dataframe.DataFrame {
	return d.frame
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return d.frame.Nrow()
}

// Columns returns the column names in file order.
func (d Dataset) Columns() []string {
	return d.frame.Names()
}

// HasColumn reports whether the named column exists.
func (d Dataset) HasColumn(name string) bool {
	return slices.Contains(d.frame.Names(), name)
}

// Bounds returns the outlier bounds the dataset was filtered with, if any.
func (d Dataset) Bounds() (Bounds, bool) {
	if d.bounds == nil {
		return Bounds{}, false
	}
	return *d.bounds, true
}

// IsNumeric reports whether the named column holds ints or floats.
func (d Dataset) IsNumeric(name string) bool {
	if !d.HasColumn(name) {
		return false
	}
	switch d.frame.Col(name).Type() {
	case series.Int, series.Float:
		return true
	default:
		return false
	}
}

// NumericColumns returns the int and float columns in file order.
func (d Dataset) NumericColumns() []string {
	var cols []string
	for _, name := range d.frame.Names() {
		if d.IsNumeric(name) {
			cols = append(cols, name)
		}
	}
	return cols
}

// Floats returns a column as float64 values; missing or unparsable cells are NaN.
func (d Dataset) Floats(name string) ([]float64, error) {
	if !d.HasColumn(name) {
		return nil, &MissingColumnError{Columns: []string{name}}
	}
	return d.frame.Col(name).Float(), nil
}

// Ints returns a column as int values.
func (d Dataset) Ints(name string) ([]int, error) {
	if !d.HasColumn(name) {
		return nil, &MissingColumnError{Columns: []string{name}}
	}
	vals, err := d.frame.Col(name).Int()
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: %w", ErrParse, name, err)
	}
	return vals, nil
}

// Strings returns a column as text. Missing cells render as "NaN".
func (d Dataset) Strings(name string) ([]string, error) {
	if !d.HasColumn(name) {
		return nil, &MissingColumnError{Columns: []string{name}}
	}
	return d.frame.Col(name).Records(), nil
}

// Times parses a column of timestamps. Any unparsable cell is an ErrParse.
func (d Dataset) Times(name string) ([]time.Time, error) {
	raw, err := d.Strings(name)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(raw))
	for i, s := range raw {
		t, err := ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s row %d: %w", ErrParse, name, i, err)
		}
		out[i] = t
	}
	return out, nil
}

// ParseTime parses a last_updated value using the supported layouts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// WithFloats returns a copy with the named float column added or replaced.
func (d Dataset) WithFloats(name string, values []float64) Dataset {
	return d.with(series.New(values, series.Float, name))
}

// WithInts returns a copy with the named int column added or replaced.
func (d Dataset) WithInts(name string, values []int) Dataset {
	return d.with(series.New(values, series.Int, name))
}

// WithStrings returns a copy with the named string column added or replaced.
func (d Dataset) WithStrings(name string, values []string) Dataset {
	return d.with(series.New(values, series.String, name))
}

func (d Dataset) with(s series.Series) Dataset {
	return Dataset{frame: d.frame.Mutate(s), bounds: d.bounds}
}

// Subset returns the rows at the given indexes, in that order.
func (d Dataset) Subset(rows []int) Dataset {
	if len(rows) == 0 {
		return Dataset{frame: emptyLike(d.frame), bounds: d.bounds}
	}
	return Dataset{frame: d.frame.Subset(rows), bounds: d.bounds}
}

// Head returns the first n rows.
func (d Dataset) Head(n int) Dataset {
	n = min(n, d.Len())
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return d.Subset(rows)
}

// Missing returns, per row, whether the named column holds a missing value.
// Numeric columns treat NaN as missing; text columns treat blank cells as missing.
func (d Dataset) Missing(name string) []bool {
	col := d.frame.Col(name)
	mask := col.IsNaN()
	switch col.Type() {
	case series.Int, series.Float:
		for i, v := range col.Float() {
			if math.IsNaN(v) {
				mask[i] = true
			}
		}
	case series.String:
		for i, v := range col.Records() {
			if strings.TrimSpace(v) == "" {
				mask[i] = true
			}
		}
	}
	return mask
}

// renamed returns a copy whose columns carry the given names, in order.
func (d Dataset) renamed(names []string) Dataset {
	cols := make([]series.Series, 0, len(names))
	for i, old := range d.frame.Names() {
		s := d.frame.Col(old)
		s.Name = names[i]
		cols = append(cols, s)
	}
	return Dataset{frame: dataframe.New(cols...), bounds: d.bounds}
}

func (d Dataset) withBounds(b Bounds) Dataset {
	d.bounds = &b
	return d
}

// emptyLike builds a zero-row frame with the same columns and types.
func emptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, series.New([]string{}, df.Col(name).Type(), name))
	}
	return dataframe.New(cols...)
}
