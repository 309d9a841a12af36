// Package excel exports a run as an .xlsx workbook.
package excel

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ReportFile is the workbook name inside the output directory.
const ReportFile = "weather_report.xlsx"

// Sheet names, in workbook order.
const (
	SheetSummary      = "Summary"
	SheetCityAverages = "City Averages"
	SheetCorrelation  = "Correlation"
	SheetModels       = "Models"
	SheetAnomalies    = "Anomalies"
)

// Writer writes the report workbook into a directory.
type Writer struct {
	dir string
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write builds the workbook and returns its path.
func (w *Writer) Write(report domain.Report) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetDocProps(&excelize.DocProperties{
		Title:       "Weather Analysis Report",
		Subject:     report.Result.Input,
		Creator:     "weather-eda",
		Description: "Run " + report.Result.RunID,
		Created:     report.Result.StartedAt.Format(time.RFC3339),
	})

	sheets := []struct {
		name string
		fill func(*excelize.File, string, domain.Report) error
	}{
		{SheetSummary, summarySheet},
		{SheetCityAverages, cityAveragesSheet},
		{SheetCorrelation, correlationSheet},
		{SheetModels, modelsSheet},
		{SheetAnomalies, anomaliesSheet},
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return "", fmt.Errorf("report: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return "", fmt.Errorf("report: create sheet %s: %w", s.name, err)
		}
		if err := s.fill(f, s.name, report); err != nil {
			return "", fmt.Errorf("report: sheet %s: %w", s.name, err)
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create output dir: %w", err)
	}
	path := filepath.Join(w.dir, ReportFile)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("report: save: %w", err)
	}
	return path, nil
}

func summarySheet(f *excelize.File, sheet string, report domain.Report) error {
	r := report.Result
	skipped := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		skipped[i] = s.Step
	}
	rows := [][]any{
		{"Run ID", r.RunID},
		{"Input", r.Input},
		{"Started", r.StartedAt.Format(time.RFC3339)},
		{"Finished", r.FinishedAt.Format(time.RFC3339)},
		{"Rows loaded", r.RowsLoaded},
		{"Coerced to missing", r.Clean.CoercedToMissing},
		{"Dropped missing", r.Clean.DroppedMissing},
		{"Dropped outliers", r.Clean.DroppedOutliers},
		{"Rows analyzed", r.RowsOut()},
		{"Q1", number(r.Clean.Bounds.Q1)},
		{"Q3", number(r.Clean.Bounds.Q3)},
		{"Lower bound", number(r.Clean.Bounds.Lower)},
		{"Upper bound", number(r.Clean.Bounds.Upper)},
		{"Geocoding", r.Geocoding.Mode},
		{"Anomalies", r.Anomalies},
		{"Map markers", r.Markers},
		{"Skipped steps", strings.Join(skipped, ", ")},
	}
	if err := writeRows(f, sheet, 1, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 20)
}

func cityAveragesSheet(f *excelize.File, sheet string, report domain.Report) error {
	rows := [][]any{{"City", "Mean temperature (°C)", "Records"}}
	for _, g := range report.CityAverages {
		rows = append(rows, []any{g.Group, number(g.Mean), g.Count})
	}
	return writeRows(f, sheet, 1, rows)
}

func correlationSheet(f *excelize.File, sheet string, report domain.Report) error {
	m := report.Correlation
	header := []any{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	rows := [][]any{header}
	for i, c := range m.Columns {
		row := []any{c}
		for _, v := range m.Values[i] {
			row = append(row, number(v))
		}
		rows = append(rows, row)
	}
	return writeRows(f, sheet, 1, rows)
}

func modelsSheet(f *excelize.File, sheet string, report domain.Report) error {
	rows := [][]any{{"Model", "MAE", "MSE", "Train rows", "Test rows"}}
	for _, m := range report.Result.Models {
		rows = append(rows, []any{m.Model, number(m.MAE), number(m.MSE), m.TrainSize, m.TestSize})
	}
	if len(report.Result.Importances) > 0 {
		rows = append(rows, []any{}, []any{"Feature", "Importance"})
		for _, fi := range report.Result.Importances {
			rows = append(rows, []any{fi.Feature, number(fi.Importance)})
		}
	}
	return writeRows(f, sheet, 1, rows)
}

func anomaliesSheet(f *excelize.File, sheet string, report domain.Report) error {
	rows := [][]any{{"Row", "Location", "Last updated", "Temperature (°C)", "Humidity", "Pressure", "Score"}}
	for _, e := range report.Anomalies {
		rows = append(rows, []any{
			e.Row,
			e.Location,
			e.LastUpdated.Format("2006-01-02 15:04"),
			number(e.Temperature),
			number(e.Humidity),
			number(e.Pressure),
			number(e.Score),
		})
	}
	return writeRows(f, sheet, 1, rows)
}

func writeRows(f *excelize.File, sheet string, startRow int, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// number leaves NaN cells blank.
func number(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}
