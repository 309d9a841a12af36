package pipeline

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/weather-eda/internal/domain"
)

const locationOneHotPrefix = domain.ColLocationName + "_"

// printOverview writes the head, shape, missing counts and numeric summary
// of the raw dataset.
func (p *Pipeline) printOverview(ds domain.Dataset) {
	out := p.deps.Console
	fmt.Fprintln(out, ds.Head(5).Frame().String())
	fmt.Fprintf(out, "Shape: (%d, %d)\n\n", ds.Len(), len(ds.Columns()))

	fmt.Fprintln(out, "Missing values:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range domain.MissingCounts(ds) {
		fmt.Fprintf(tw, "%s\t%d\n", c.Column, c.Count)
	}
	_ = tw.Flush()
	fmt.Fprintln(out)

	summaries := domain.Describe(ds)
	if len(summaries) == 0 {
		return
	}
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t\n",
			s.Column, s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max)
	}
	_ = tw.Flush()
	fmt.Fprintln(out)
}

// printColumns writes the normalized column names and whether the dataset
// carries one-hot encoded location columns.
func (p *Pipeline) printColumns(ds domain.Dataset) {
	out := p.deps.Console
	fmt.Fprintf(out, "Updated Column Names: [%s]\n", strings.Join(ds.Columns(), ", "))

	var oneHot int
	for _, c := range ds.Columns() {
		if strings.HasPrefix(c, locationOneHotPrefix) {
			oneHot++
		}
	}
	if oneHot > 0 {
		fmt.Fprintf(out, "Location name columns detected and used in analysis (%d).\n", oneHot)
	} else {
		fmt.Fprintln(out, "No location name columns found.")
	}
}

func (p *Pipeline) printSummary(r domain.RunResult) {
	out := p.deps.Console
	fmt.Fprintf(out, "\nRows: %d loaded, %d dropped missing, %d dropped outliers, %d analyzed\n",
		r.RowsLoaded, r.Clean.DroppedMissing, r.Clean.DroppedOutliers, r.RowsOut())
	fmt.Fprintf(out, "Temperature bounds: [%.2f, %.2f]\n", r.Clean.Bounds.Lower, r.Clean.Bounds.Upper)
	if len(r.Skipped) > 0 {
		names := make([]string, len(r.Skipped))
		for i, s := range r.Skipped {
			names[i] = s.Step
		}
		fmt.Fprintf(out, "Skipped steps: %s\n", strings.Join(names, ", "))
	}
	for _, a := range r.Artifacts {
		fmt.Fprintf(out, "Wrote %s\n", a.Path)
	}
}
