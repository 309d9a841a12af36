package chart

import (
	"fmt"
	"image/color"
	"math"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// CityAverages draws the mean temperature of every location, lowest first.
func (r *Renderer) CityAverages(ds domain.Dataset) (string, error) {
	means, err := domain.GroupMeans(ds, domain.ColLocationName, domain.ColTemperature)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", CityAverages, err)
	}
	if len(means) == 0 {
		return "", fmt.Errorf("chart %s: no rows", CityAverages)
	}

	values := make(plotter.Values, len(means))
	names := make([]string, len(means))
	for i, m := range means {
		values[i] = m.Mean
		names[i] = m.Group
	}

	p := newPlot("Average Temperature by City", "Temperature (°C)", "")
	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", CityAverages, err)
	}
	bars.Horizontal = true
	bars.Color = blue
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	height := max(r.height, vg.Length(len(means))*12)
	return r.save(p, CityAverages, r.width, height)
}

// TemperatureHumidity draws temperature against humidity.
func (r *Renderer) TemperatureHumidity(ds domain.Dataset) (string, error) {
	xys, err := pairs(ds, domain.ColTemperature, domain.ColHumidity)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", TemperatureHumidity, err)
	}

	p := newPlot("Temperature vs Humidity", "Temperature (°C)", "Humidity (%)")
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", TemperatureHumidity, err)
	}
	s.GlyphStyle.Color = blue
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	return r.save(p, TemperatureHumidity, r.width, r.height)
}

// TemperatureDistribution draws a 20-bin density histogram of temperature
// with a Gaussian kernel density estimate on top.
func (r *Renderer) TemperatureDistribution(ds domain.Dataset) (string, error) {
	temps, err := ds.Floats(domain.ColTemperature)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", TemperatureDistribution, err)
	}
	if len(temps) == 0 {
		return "", fmt.Errorf("chart %s: no rows", TemperatureDistribution)
	}

	p := newPlot("Temperature Distribution", "Temperature (°C)", "Density")
	h, err := plotter.NewHist(plotter.Values(temps), 20)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", TemperatureDistribution, err)
	}
	h.Normalize(1)
	h.FillColor = blue
	p.Add(h)

	// A single or constant sample has no density estimate; the histogram alone is drawn.
	if kde, err := domain.NewKDE(temps); err == nil {
		curve := plotter.NewFunction(kde.Density)
		curve.Samples = 200
		curve.Color = orange
		curve.Width = vg.Points(2)
		pad := 3 * kde.Bandwidth()
		curve.XMin = floats.Min(temps) - pad
		curve.XMax = floats.Max(temps) + pad
		p.Add(curve)
	}
	return r.save(p, TemperatureDistribution, r.width, r.height)
}

// CorrelationHeatmap draws the Pearson matrix with every cell annotated.
func (r *Renderer) CorrelationHeatmap(m domain.CorrelationMatrix) (string, error) {
	n := len(m.Columns)
	if n == 0 {
		return "", fmt.Errorf("chart %s: empty matrix", CorrelationHeatmap)
	}

	colors := moreland.SmoothBlueRed()
	colors.SetMin(-1)
	colors.SetMax(1)

	grid := correlationGrid{m: m}
	hm := plotter.NewHeatMap(grid, colors.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := newPlot("Correlation Heatmap", "", "")
	p.Add(hm)

	var annotations plotter.XYLabels
	for c := 0; c < n; c++ {
		for row := 0; row < n; row++ {
			annotations.XYs = append(annotations.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(row)})
			annotations.Labels = append(annotations.Labels, formatCorrelation(grid.Z(c, row)))
		}
	}
	labels, err := plotter.NewLabels(annotations)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", CorrelationHeatmap, err)
	}
	p.Add(labels)

	// Rows are drawn bottom-up, so the first column name goes on top.
	yNames := make([]string, n)
	for i, name := range m.Columns {
		yNames[n-1-i] = name
	}
	p.NominalX(m.Columns...)
	p.NominalY(yNames...)

	side := max(r.height, vg.Length(n)*vg.Inch)
	return r.save(p, CorrelationHeatmap, side, side)
}

// TemperatureTrend draws temperature over last_updated.
func (r *Renderer) TemperatureTrend(ds domain.Dataset) (string, error) {
	xys, err := timeSeries(ds, domain.ColTemperature)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", TemperatureTrend, err)
	}

	p := newPlot("Temperature Trend", "Last Updated", "Temperature (°C)")
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", TemperatureTrend, err)
	}
	line.Color = blue
	points.GlyphStyle.Color = blue
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	return r.save(p, TemperatureTrend, r.width, r.height)
}

// AnomalyScatter draws temperature over time, normal rows in blue and
// anomalous rows in red.
func (r *Renderer) AnomalyScatter(ds domain.Dataset) (string, error) {
	xys, err := timeSeries(ds, domain.ColTemperature)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", AnomalyScatter, err)
	}
	labels, err := ds.Ints(domain.ColAnomaly)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", AnomalyScatter, err)
	}

	var normal, anomalous plotter.XYs
	for i, xy := range xys {
		if labels[i] == domain.LabelAnomaly {
			anomalous = append(anomalous, xy)
		} else {
			normal = append(normal, xy)
		}
	}

	p := newPlot("Anomaly Detection", "Last Updated", "Temperature (°C)")
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}
	for _, group := range []struct {
		name string
		xys  plotter.XYs
		c    color.Color
	}{
		{"normal", normal, blue},
		{"anomaly", anomalous, red},
	} {
		if len(group.xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(group.xys)
		if err != nil {
			return "", fmt.Errorf("chart %s: %w", AnomalyScatter, err)
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = group.c
		p.Add(s)
		p.Legend.Add(group.name, s)
	}
	return r.save(p, AnomalyScatter, r.width, r.height)
}

func pairs(ds domain.Dataset, xCol, yCol string) (plotter.XYs, error) {
	xs, err := ds.Floats(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := ds.Floats(yCol)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	xys := make(plotter.XYs, len(xs))
	for i := range xs {
		xys[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return xys, nil
}

func timeSeries(ds domain.Dataset, yCol string) (plotter.XYs, error) {
	times, err := ds.Times(domain.ColLastUpdated)
	if err != nil {
		return nil, err
	}
	ys, err := ds.Floats(yCol)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	xys := make(plotter.XYs, len(times))
	for i, t := range times {
		xys[i] = plotter.XY{X: float64(t.Unix()), Y: ys[i]}
	}
	return xys, nil
}

// correlationGrid adapts a CorrelationMatrix to plotter.GridXYZ. Column c of
// the matrix is drawn at x=c and row i at y=n-1-i.
type correlationGrid struct {
	m domain.CorrelationMatrix
}

func (g correlationGrid) Dims() (c, r int) {
	n := len(g.m.Columns)
	return n, n
}

func (g correlationGrid) Z(c, r int) float64 {
	n := len(g.m.Columns)
	v := g.m.Values[n-1-r][c]
	if math.IsNaN(v) {
		return v
	}
	return math.Max(-1, math.Min(1, v))
}

func (g correlationGrid) X(c int) float64 { return float64(c) }
func (g correlationGrid) Y(r int) float64 { return float64(r) }

func formatCorrelation(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.2f", v)
}
