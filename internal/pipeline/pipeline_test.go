package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-eda/internal/adapter/excel"
	"github.com/couchcryptid/weather-eda/internal/adapter/leaflet"
	"github.com/couchcryptid/weather-eda/internal/chart"
	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/mockdata"
	"github.com/couchcryptid/weather-eda/internal/observability"
	"github.com/couchcryptid/weather-eda/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCharts struct {
	dir   string
	err   map[string]error
	drawn []string
}

func (m *mockCharts) draw(name string) (string, error) {
	if err := m.err[name]; err != nil {
		return "", err
	}
	m.drawn = append(m.drawn, name)
	return filepath.Join(m.dir, name+".png"), nil
}

func (m *mockCharts) CityAverages(domain.Dataset) (string, error) {
	return m.draw(chart.CityAverages)
}

func (m *mockCharts) TemperatureHumidity(domain.Dataset) (string, error) {
	return m.draw(chart.TemperatureHumidity)
}

func (m *mockCharts) TemperatureDistribution(domain.Dataset) (string, error) {
	return m.draw(chart.TemperatureDistribution)
}

func (m *mockCharts) CorrelationHeatmap(domain.CorrelationMatrix) (string, error) {
	return m.draw(chart.CorrelationHeatmap)
}

func (m *mockCharts) TemperatureTrend(domain.Dataset) (string, error) {
	return m.draw(chart.TemperatureTrend)
}

func (m *mockCharts) AnomalyScatter(domain.Dataset) (string, error) {
	return m.draw(chart.AnomalyScatter)
}

func (m *mockCharts) ActualVsPredicted(_, _, _ []float64) (string, error) {
	return m.draw(chart.ActualVsPredicted)
}

func (m *mockCharts) EnvironmentalPairs(domain.Dataset) (string, error) {
	return m.draw(chart.EnvironmentalPairs)
}

func (m *mockCharts) FeatureImportance([]domain.FeatureImportance) (string, error) {
	return m.draw(chart.FeatureImportance)
}

type mockMap struct {
	markers []domain.Marker
}

func (m *mockMap) Render(markers []domain.Marker) ([]string, error) {
	m.markers = markers
	return []string{"weather_map.html"}, nil
}

type mockPublisher struct {
	err    error
	calls  int
	events []domain.AnomalyEvent
}

func (m *mockPublisher) Publish(_ context.Context, events []domain.AnomalyEvent) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

type mockStore struct {
	mu   sync.Mutex
	keys []string
}

func (m *mockStore) Upload(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

type mockGeocoder struct {
	fail map[string]bool
}

func (m mockGeocoder) ForwardGeocode(_ context.Context, name, _ string) (domain.GeocodingResult, error) {
	if m.fail[name] {
		return domain.GeocodingResult{}, errors.New("no match")
	}
	return domain.GeocodingResult{Lat: float64(len(name)), Lon: 10, PlaceName: name}, nil
}

func (mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{}, errors.New("not supported")
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeMockCSV(t *testing.T, opts mockdata.Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, mockdata.WriteCSV(f, opts))
	return path
}

func defaultOptions(dir string) pipeline.Options {
	return pipeline.Options{OutputDir: dir, Seed: 42, TestFraction: 0.2, Contamination: 0.05}
}

func skippedSteps(r domain.RunResult) map[string][]string {
	out := make(map[string][]string, len(r.Skipped))
	for _, s := range r.Skipped {
		out[s.Step] = s.Missing
	}
	return out
}

func modelNames(r domain.RunResult) []string {
	var names []string
	for _, m := range r.Models {
		names = append(names, m.Model)
	}
	return names
}

// --- tests ---

func TestPipeline_Run_AllStepsRun(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 100, Seed: 7, MissingHumidity: 3})

	charts := &mockCharts{dir: dir}
	maps := &mockMap{}
	var console bytes.Buffer
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts:  charts,
		Map:     maps,
		Console: &console,
	}, discardLogger(), metrics)

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 100, result.RowsLoaded)
	assert.Equal(t, 3, result.Clean.DroppedMissing)
	assert.Equal(t, 97, result.RowsOut())
	assert.Empty(t, result.Skipped)
	assert.Len(t, maps.markers, 97)
	assert.Equal(t, 97, result.Markers)

	assert.Equal(t, []string{
		chart.CityAverages,
		chart.TemperatureHumidity,
		chart.TemperatureDistribution,
		chart.CorrelationHeatmap,
		chart.TemperatureTrend,
		chart.ActualVsPredicted,
		chart.AnomalyScatter,
		chart.EnvironmentalPairs,
		chart.FeatureImportance,
	}, charts.drawn)
	assert.Equal(t, []string{"linear_regression", "random_forest", "gradient_boosting"}, modelNames(result))
	assert.Len(t, result.Importances, 2)
	assert.Positive(t, result.Anomalies)

	out := console.String()
	assert.Contains(t, out, "Linear Regression MAE: ")
	assert.Contains(t, out, "Random Forest MAE: ")
	assert.Contains(t, out, "Gradient Boosting MAE: ")
	assert.Contains(t, out, "Shape: (100, 9)")
	assert.Contains(t, out, "No location name columns found.")
	assert.NotContains(t, out, "Skipping")

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(domain.OutcomeSucceeded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StepsTotal.WithLabelValues(pipeline.StepRandomForest, domain.OutcomeSucceeded)), 0)
	assert.InDelta(t, 97, testutil.ToFloat64(metrics.Rows.WithLabelValues("retained")), 0)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_MissingPressureSkipsModels(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 60, Seed: 3, OmitColumns: []string{"pressure"}})

	var console bytes.Buffer
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts:  &mockCharts{dir: dir},
		Map:     &mockMap{},
		Console: &console,
	}, discardLogger(), metrics)

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	skipped := skippedSteps(result)
	want := map[string][]string{
		pipeline.StepIsolationForest:    {"pressure"},
		pipeline.StepAnomalyScatter:     {"anomaly"},
		pipeline.StepEnvironmentalPairs: {"pressure"},
		pipeline.StepRandomForest:       {"pressure"},
		pipeline.StepFeatureImportance:  nil,
		pipeline.StepGradientBoosting:   {"pressure"},
	}
	if diff := cmp.Diff(want, skipped); diff != "" {
		t.Errorf("skipped steps mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"linear_regression"}, modelNames(result))
	assert.False(t, result.Ran(pipeline.StepRandomForest))
	assert.True(t, result.Ran(pipeline.StepWeatherMap))

	out := console.String()
	assert.Contains(t, out, "Skipping random_forest: missing columns: pressure")
	assert.Contains(t, out, "Skipping gradient_boosting: missing columns: pressure")
	assert.NotContains(t, out, "Random Forest MAE")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StepsTotal.WithLabelValues(pipeline.StepRandomForest, domain.OutcomeSkipped)), 0)
}

func TestPipeline_Run_MissingFile(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(defaultOptions(t.TempDir()), pipeline.Deps{}, discardLogger(), metrics)

	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, domain.ErrIO)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(domain.OutcomeFailed)), 0)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_MissingTemperatureIsFatal(t *testing.T) {
	path := writeMockCSV(t, mockdata.Options{Rows: 20, OmitColumns: []string{"temperature_celsius"}})
	p := pipeline.New(defaultOptions(t.TempDir()), pipeline.Deps{}, discardLogger(), observability.NewMetricsForTesting())

	_, err := p.Run(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestPipeline_Run_ChartErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 40})
	charts := &mockCharts{dir: dir, err: map[string]error{chart.TemperatureTrend: errors.New("disk full")}}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{Charts: charts, Map: &mockMap{}}, discardLogger(), metrics)

	_, err := p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature_trend: disk full")
	assert.NotContains(t, charts.drawn, chart.AnomalyScatter)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StepsTotal.WithLabelValues(pipeline.StepTemperatureTrend, domain.OutcomeFailed)), 0)
}

func TestPipeline_Run_PublishesAnomalies(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 80, Seed: 11})
	publisher := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts:    &mockCharts{dir: dir},
		Map:       &mockMap{},
		Publisher: publisher,
	}, discardLogger(), metrics)

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	require.NotEmpty(t, publisher.events)
	assert.Len(t, publisher.events, result.Anomalies)
	for _, e := range publisher.events {
		assert.Equal(t, result.RunID, e.RunID)
	}
	assert.InDelta(t, float64(result.Anomalies), testutil.ToFloat64(metrics.AnomaliesPublished), 0)
}

func TestPipeline_Run_PublishFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 80, Seed: 11})
	publisher := &mockPublisher{err: errors.New("broker down")}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts:    &mockCharts{dir: dir},
		Map:       &mockMap{},
		Publisher: publisher,
	}, discardLogger(), metrics)

	_, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, publisher.calls)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.PublishErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.AnomaliesPublished), 0)
}

func TestPipeline_Run_UploadsArtifacts(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.May, 16, 9, 30, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 50})
	store := &mockStore{}

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts: &mockCharts{dir: dir},
		Map:    &mockMap{},
		Store:  store,
	}, discardLogger(), observability.NewMetricsForTesting())

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	prefix := "2024-05-16/" + result.RunID + "/"
	require.Len(t, store.keys, len(result.Artifacts))
	for _, key := range store.keys {
		assert.True(t, strings.HasPrefix(key, prefix), key)
	}
	assert.Contains(t, store.keys, prefix+pipeline.SummaryFile)
	assert.Contains(t, store.keys, prefix+"city_averages.png")
}

func TestPipeline_Run_WritesSummary(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 50, Outliers: 2})

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts: &mockCharts{dir: dir},
		Map:    &mockMap{},
	}, discardLogger(), observability.NewMetricsForTesting())

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Clean.DroppedOutliers)

	data, err := os.ReadFile(filepath.Join(dir, pipeline.SummaryFile))
	require.NoError(t, err)

	var summary struct {
		RunID string `json:"run_id"`
		Clean struct {
			DroppedOutliers int `json:"dropped_outliers"`
		} `json:"clean"`
		Models []struct {
			Model string `json:"model"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, result.RunID, summary.RunID)
	assert.Equal(t, 2, summary.Clean.DroppedOutliers)
	assert.Len(t, summary.Models, 3)
}

func TestPipeline_Run_GeocodesMissingCoordinates(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 30, OmitColumns: []string{"latitude", "longitude"}})
	maps := &mockMap{}

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts:   &mockCharts{dir: dir},
		Map:      maps,
		Geocoder: mockGeocoder{},
	}, discardLogger(), observability.NewMetricsForTesting())

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.GeocodeForward, result.Geocoding.Mode)
	assert.Equal(t, 10, result.Geocoding.Resolved)
	assert.True(t, result.Ran(pipeline.StepWeatherMap))
	assert.Len(t, maps.markers, 30)
}

func TestPipeline_Run_GeocodeFailureKeepsRows(t *testing.T) {
	path := writeMockCSV(t, mockdata.Options{Rows: 30, OmitColumns: []string{"latitude", "longitude"}})

	run := func(geocoder domain.Geocoder) (domain.RunResult, *mockMap) {
		dir := t.TempDir()
		maps := &mockMap{}
		p := pipeline.New(defaultOptions(dir), pipeline.Deps{
			Charts:   &mockCharts{dir: dir},
			Map:      maps,
			Geocoder: geocoder,
		}, discardLogger(), observability.NewMetricsForTesting())
		result, err := p.Run(context.Background(), path)
		require.NoError(t, err)
		return result, maps
	}

	baseline, _ := run(nil)
	result, maps := run(mockGeocoder{fail: map[string]bool{"Kabul": true}})

	assert.Equal(t, baseline.RowsOut(), result.RowsOut())
	assert.Equal(t, 9, result.Geocoding.Resolved)
	assert.Equal(t, 1, result.Geocoding.Failed)
	assert.True(t, result.Ran(pipeline.StepWeatherMap))

	require.NotEmpty(t, maps.markers)
	assert.Less(t, len(maps.markers), result.RowsOut())
	for _, m := range maps.markers {
		assert.NotEqual(t, "Kabul", m.Label)
	}
}

func TestPipeline_Run_NoCoordinatesSkipsMap(t *testing.T) {
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 30, OmitColumns: []string{"latitude", "longitude"}})

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts: &mockCharts{dir: dir},
		Map:    &mockMap{},
	}, discardLogger(), observability.NewMetricsForTesting())

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"latitude", "longitude"}, skippedSteps(result)[pipeline.StepWeatherMap])
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("renders every chart")
	}
	dir := t.TempDir()
	path := writeMockCSV(t, mockdata.Options{Rows: 100, Seed: 42, MissingHumidity: 3})

	p := pipeline.New(defaultOptions(dir), pipeline.Deps{
		Charts: chart.NewRenderer(dir),
		Map:    leaflet.NewRenderer(dir, ""),
		Report: excel.NewWriter(dir),
	}, discardLogger(), observability.NewMetricsForTesting())

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 97, result.RowsOut())
	assert.Empty(t, result.Skipped)

	page, err := os.ReadFile(filepath.Join(dir, leaflet.HTMLFile))
	require.NoError(t, err)
	assert.Equal(t, 97, strings.Count(string(page), "L.marker("))

	for _, name := range []string{
		chart.CityAverages, chart.TemperatureHumidity, chart.TemperatureDistribution,
		chart.CorrelationHeatmap, chart.TemperatureTrend, chart.AnomalyScatter,
		chart.ActualVsPredicted, chart.EnvironmentalPairs, chart.FeatureImportance,
	} {
		assert.FileExists(t, filepath.Join(dir, name+".png"))
	}
	assert.FileExists(t, filepath.Join(dir, leaflet.GeoJSONFile))
	assert.FileExists(t, filepath.Join(dir, excel.ReportFile))
	assert.FileExists(t, filepath.Join(dir, pipeline.SummaryFile))
}

func TestRequirements(t *testing.T) {
	reqs := pipeline.Requirements()
	require.Len(t, reqs, 14)
	assert.Equal(t, pipeline.StepCityAverages, reqs[0].Step)
	assert.Equal(t, pipeline.StepWeatherMap, reqs[len(reqs)-1].Step)

	byStep := make(map[string][]string, len(reqs))
	for _, r := range reqs {
		byStep[r.Step] = r.Columns
	}
	assert.Equal(t, []string{"temperature_celsius", "humidity", "pressure"}, byStep[pipeline.StepRandomForest])
	assert.Equal(t, []string{"latitude", "longitude", "temperature_celsius"}, byStep[pipeline.StepWeatherMap])
	assert.Empty(t, byStep[pipeline.StepFeatureImportance])
}
