// Package chart renders the analysis charts as PNG files with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Chart names. Each chart is written to <name>.png in the output directory.
const (
	CityAverages            = "city_averages"
	TemperatureHumidity     = "temperature_humidity"
	TemperatureDistribution = "temperature_distribution"
	CorrelationHeatmap      = "correlation_heatmap"
	TemperatureTrend        = "temperature_trend"
	AnomalyScatter          = "anomaly_scatter"
	ActualVsPredicted       = "actual_vs_predicted"
	EnvironmentalPairs      = "environmental_pairs"
	FeatureImportance       = "feature_importance"
)

const timeFormat = "01-02 15:04"

var (
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	orange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	red    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	green  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Renderer writes charts into a directory.
type Renderer struct {
	dir    string
	width  vg.Length
	height vg.Length
}

// NewRenderer returns a Renderer writing 10x6 inch charts into dir.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir, width: 10 * vg.Inch, height: 6 * vg.Inch}
}

// Path returns where the named chart is written.
func (r *Renderer) Path(name string) string {
	return filepath.Join(r.dir, name+".png")
}

func (r *Renderer) save(p *plot.Plot, name string, width, height vg.Length) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("chart %s: create output dir: %w", name, err)
	}
	path := r.Path(name)
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("chart %s: save: %w", name, err)
	}
	return path, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}
