// Command validate checks a weather CSV before analysis: it loads and cleans
// the file, then reports which analysis steps its columns can support.
//
// Usage:
//
//	go run ./cmd/validate -csv GlobalWeatherRepository.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the weather CSV")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*csvPath))
}

func run(path string) int {
	fmt.Println("=== Weather Dataset Validation ===")
	fmt.Println()

	raw, err := domain.LoadCSV(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	raw, err = domain.NormalizeColumnNames(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	schema := validateSchema(raw)
	cleaned, cleaning := validateCleaning(raw)
	phases := []*phase{schema, cleaning}
	if cleaning.passed() {
		phases = append(phases, validateTimestamps(cleaned), validateCapabilities(cleaned))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d loaded, %d after cleaning\n", raw.Len(), cleaned.Len())

	for _, p := range phases {
		if p.passed() && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, w := range p.warnings {
			fmt.Printf("  note: %s\n", w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateSchema checks the columns the cleaner cannot work without.
func validateSchema(ds domain.Dataset) *phase {
	p := &phase{name: "Schema: required columns"}
	capability := domain.CheckColumns(ds, domain.ColLastUpdated, domain.ColTemperature)
	for _, col := range capability.Missing {
		p.errorf("missing required column %q", col)
	}
	if ds.Len() == 0 {
		p.errorf("file has a header but no rows")
	}
	return p
}

// validateCleaning runs the cleaner and reports how many rows survive.
func validateCleaning(ds domain.Dataset) (domain.Dataset, *phase) {
	p := &phase{name: "Cleaning: missing values and outliers"}
	cleaned, report, err := domain.Clean(ds)
	if err != nil {
		p.errorf("clean: %v", err)
		return domain.Dataset{}, p
	}
	if report.RowsOut() == 0 {
		p.errorf("no rows survive cleaning (%d dropped missing, %d dropped outliers)",
			report.DroppedMissing, report.DroppedOutliers)
	}
	if report.CoercedToMissing > 0 {
		p.warnf("%d temperature values were not numeric", report.CoercedToMissing)
	}
	if report.DroppedMissing > 0 {
		p.warnf("%d rows dropped for missing values", report.DroppedMissing)
	}
	if report.DroppedOutliers > 0 {
		p.warnf("%d rows outside [%.2f, %.2f] dropped", report.DroppedOutliers, report.Bounds.Lower, report.Bounds.Upper)
	}
	return cleaned, p
}

// validateTimestamps checks that derived timestamps follow last_updated order.
func validateTimestamps(ds domain.Dataset) *phase {
	p := &phase{name: "Features: timestamp derivation"}
	derived, err := domain.DeriveTimestamp(ds)
	if err != nil {
		p.errorf("derive timestamp: %v", err)
		return p
	}
	times, _ := derived.Times(domain.ColLastUpdated)
	stamps, _ := derived.Floats(domain.ColTimestamp)
	for i := range times {
		if float64(times[i].Unix()) != stamps[i] {
			p.errorf("row %d: timestamp %v does not match %s", i, stamps[i], times[i])
		}
	}
	return p
}

// validateCapabilities reports which analysis steps the dataset can support.
// Unsupported steps are notes, not failures, because the run skips them.
func validateCapabilities(ds domain.Dataset) *phase {
	p := &phase{name: "Capabilities: analysis steps"}
	derived, err := domain.DeriveTimestamp(ds)
	if err != nil {
		p.errorf("derive timestamp: %v", err)
		return p
	}
	for _, req := range pipeline.Requirements() {
		capability := domain.CheckColumns(derived, withoutDerived(req.Columns)...)
		if !capability.Satisfied() {
			p.warnf("%s will be skipped: missing %s", req.Step, strings.Join(capability.Missing, ", "))
		}
	}
	if len(domain.SourceNumericColumns(derived)) < 2 {
		p.warnf("%s will be skipped: fewer than 2 numeric columns", pipeline.StepCorrelationHeatmap)
	}
	return p
}

// withoutDerived drops the anomaly column, which the run adds itself.
func withoutDerived(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != domain.ColAnomaly {
			out = append(out, c)
		}
	}
	return out
}
