package chart

import (
	"fmt"
	"image/color"
	"os"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ActualVsPredicted draws holdout temperatures and the regression's
// predictions against their timestamps.
func (r *Renderer) ActualVsPredicted(timestamps, actual, predicted []float64) (string, error) {
	if len(timestamps) == 0 || len(actual) != len(timestamps) || len(predicted) != len(timestamps) {
		return "", fmt.Errorf("chart %s: %d timestamps, %d actual, %d predicted",
			ActualVsPredicted, len(timestamps), len(actual), len(predicted))
	}

	p := newPlot("Actual vs Predicted Temperature", "Last Updated", "Temperature (°C)")
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}

	for _, series := range []struct {
		name  string
		ys    []float64
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"actual", actual, blue, draw.CircleGlyph{}},
		{"predicted", predicted, green, draw.CrossGlyph{}},
	} {
		xys := make(plotter.XYs, len(timestamps))
		for i, ts := range timestamps {
			xys[i] = plotter.XY{X: ts, Y: series.ys[i]}
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return "", fmt.Errorf("chart %s: %w", ActualVsPredicted, err)
		}
		s.GlyphStyle.Color = series.color
		s.GlyphStyle.Shape = series.shape
		p.Add(s)
		p.Legend.Add(series.name, s)
	}
	return r.save(p, ActualVsPredicted, r.width, r.height)
}

// FeatureImportance draws the given importances as horizontal bars, the
// largest on top.
func (r *Renderer) FeatureImportance(importances []domain.FeatureImportance) (string, error) {
	if len(importances) == 0 {
		return "", fmt.Errorf("chart %s: no importances", FeatureImportance)
	}

	n := len(importances)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, imp := range importances {
		values[n-1-i] = imp.Importance
		names[n-1-i] = imp.Feature
	}

	p := newPlot("Top Feature Importances", "Importance", "")
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", FeatureImportance, err)
	}
	bars.Horizontal = true
	bars.Color = green
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)
	return r.save(p, FeatureImportance, r.width, r.height)
}

// EnvironmentalPairs draws a 3x3 grid of temperature, humidity and pressure:
// histograms on the diagonal and pairwise scatters elsewhere.
func (r *Renderer) EnvironmentalPairs(ds domain.Dataset) (string, error) {
	cols := []string{domain.ColTemperature, domain.ColHumidity, domain.ColPressure}
	data := make([][]float64, len(cols))
	for i, c := range cols {
		vals, err := ds.Floats(c)
		if err != nil {
			return "", fmt.Errorf("chart %s: %w", EnvironmentalPairs, err)
		}
		data[i] = vals
	}
	if ds.Len() == 0 {
		return "", fmt.Errorf("chart %s: no rows", EnvironmentalPairs)
	}

	n := len(cols)
	plots := make([][]*plot.Plot, n)
	for row := range plots {
		plots[row] = make([]*plot.Plot, n)
		for col := range plots[row] {
			p := plot.New()
			if row == n-1 {
				p.X.Label.Text = cols[col]
			}
			if col == 0 {
				p.Y.Label.Text = cols[row]
			}

			if row == col {
				h, err := plotter.NewHist(plotter.Values(data[col]), 20)
				if err != nil {
					return "", fmt.Errorf("chart %s: %w", EnvironmentalPairs, err)
				}
				h.FillColor = blue
				p.Add(h)
			} else {
				xys := make(plotter.XYs, ds.Len())
				for i := range xys {
					xys[i] = plotter.XY{X: data[col][i], Y: data[row][i]}
				}
				s, err := plotter.NewScatter(xys)
				if err != nil {
					return "", fmt.Errorf("chart %s: %w", EnvironmentalPairs, err)
				}
				s.GlyphStyle.Color = blue
				s.GlyphStyle.Shape = draw.CircleGlyph{}
				s.GlyphStyle.Radius = vg.Points(1.5)
				p.Add(s)
			}
			plots[row][col] = p
		}
	}

	side := 9 * vg.Inch
	img := vgimg.New(side, side)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: n,
		Cols: n,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		for col := range plots[row] {
			plots[row][col].Draw(canvases[row][col])
		}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("chart %s: create output dir: %w", EnvironmentalPairs, err)
	}
	path := r.Path(EnvironmentalPairs)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", EnvironmentalPairs, err)
	}
	defer f.Close()

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return "", fmt.Errorf("chart %s: write png: %w", EnvironmentalPairs, err)
	}
	return path, nil
}
