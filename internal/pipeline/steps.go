package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/ml"
)

// Step names, in the order a run executes them.
const (
	StepCityAverages            = "city_averages"
	StepTemperatureHumidity     = "temperature_humidity"
	StepTemperatureDistribution = "temperature_distribution"
	StepCorrelationHeatmap      = "correlation_heatmap"
	StepTemperatureTrend        = "temperature_trend"
	StepLinearRegression        = "linear_regression"
	StepActualVsPredicted       = "actual_vs_predicted"
	StepIsolationForest         = "isolation_forest"
	StepAnomalyScatter          = "anomaly_scatter"
	StepEnvironmentalPairs      = "environmental_pairs"
	StepRandomForest            = "random_forest"
	StepFeatureImportance       = "feature_importance"
	StepGradientBoosting        = "gradient_boosting"
	StepWeatherMap              = "weather_map"
)

const importanceTopK = 5

// errPrerequisite marks a step that cannot run because an earlier step it
// depends on was skipped.
var errPrerequisite = errors.New("prerequisite not met")

// Step is one gated unit of the analysis.
type Step struct {
	Name     string
	Requires []string
	run      func(ctx context.Context, s *runState) error
}

// runState carries the dataset and intermediate results between steps.
type runState struct {
	ds     domain.Dataset
	result domain.RunResult

	cityMeans   []domain.GroupMean
	correlation domain.CorrelationMatrix
	events      []domain.AnomalyEvent

	linear *linearOutput
	forest bool
}

// linearOutput is the holdout of the linear regression, kept for the
// actual-vs-predicted chart.
type linearOutput struct {
	timestamps []float64
	actual     []float64
	predicted  []float64
}

func (s *runState) addArtifact(step, path string) {
	s.result.Artifacts = append(s.result.Artifacts, domain.Artifact{Step: step, Path: path})
}

// Requirements lists the columns each step needs, in run order. Steps that
// depend only on another step's output have no column requirement.
func Requirements() []domain.Requirement {
	steps := (&Pipeline{}).steps()
	out := make([]domain.Requirement, 0, len(steps))
	for _, st := range steps {
		out = append(out, domain.Requirement{Step: st.Name, Columns: st.Requires})
	}
	return out
}

func (p *Pipeline) steps() []Step {
	return []Step{
		{
			Name:     StepCityAverages,
			Requires: []string{domain.ColLocationName, domain.ColTemperature},
			run:      p.cityAverages,
		},
		{
			Name:     StepTemperatureHumidity,
			Requires: []string{domain.ColTemperature, domain.ColHumidity},
			run:      p.chartStep(StepTemperatureHumidity, ChartRenderer.TemperatureHumidity),
		},
		{
			Name:     StepTemperatureDistribution,
			Requires: []string{domain.ColTemperature},
			run:      p.chartStep(StepTemperatureDistribution, ChartRenderer.TemperatureDistribution),
		},
		{
			Name: StepCorrelationHeatmap,
			run:  p.correlationHeatmap,
		},
		{
			Name:     StepTemperatureTrend,
			Requires: []string{domain.ColLastUpdated, domain.ColTemperature},
			run:      p.chartStep(StepTemperatureTrend, ChartRenderer.TemperatureTrend),
		},
		{
			Name:     StepLinearRegression,
			Requires: []string{domain.ColTimestamp, domain.ColTemperature},
			run:      p.linearRegression,
		},
		{
			Name: StepActualVsPredicted,
			run:  p.actualVsPredicted,
		},
		{
			Name:     StepIsolationForest,
			Requires: []string{domain.ColTemperature, domain.ColHumidity, domain.ColPressure},
			run:      p.isolationForest,
		},
		{
			Name:     StepAnomalyScatter,
			Requires: []string{domain.ColLastUpdated, domain.ColTemperature, domain.ColAnomaly},
			run:      p.chartStep(StepAnomalyScatter, ChartRenderer.AnomalyScatter),
		},
		{
			Name:     StepEnvironmentalPairs,
			Requires: []string{domain.ColTemperature, domain.ColHumidity, domain.ColPressure},
			run:      p.chartStep(StepEnvironmentalPairs, ChartRenderer.EnvironmentalPairs),
		},
		{
			Name:     StepRandomForest,
			Requires: []string{domain.ColTemperature, domain.ColHumidity, domain.ColPressure},
			run:      p.randomForest,
		},
		{
			Name: StepFeatureImportance,
			run:  p.featureImportance,
		},
		{
			Name:     StepGradientBoosting,
			Requires: []string{domain.ColTemperature, domain.ColHumidity, domain.ColPressure},
			run:      p.gradientBoosting,
		},
		{
			Name:     StepWeatherMap,
			Requires: []string{domain.ColLatitude, domain.ColLongitude, domain.ColTemperature},
			run:      p.weatherMap,
		},
	}
}

// chartStep adapts a single-dataset chart into a step.
func (p *Pipeline) chartStep(name string, render func(ChartRenderer, domain.Dataset) (string, error)) func(context.Context, *runState) error {
	return func(_ context.Context, s *runState) error {
		path, err := render(p.deps.Charts, s.ds)
		if err != nil {
			return err
		}
		s.addArtifact(name, path)
		return nil
	}
}

func (p *Pipeline) cityAverages(_ context.Context, s *runState) error {
	means, err := domain.GroupMeans(s.ds, domain.ColLocationName, domain.ColTemperature)
	if err != nil {
		return err
	}
	s.cityMeans = means
	path, err := p.deps.Charts.CityAverages(s.ds)
	if err != nil {
		return err
	}
	s.addArtifact(StepCityAverages, path)
	return nil
}

func (p *Pipeline) correlationHeatmap(_ context.Context, s *runState) error {
	if cols := domain.SourceNumericColumns(s.ds); len(cols) < 2 {
		return fmt.Errorf("%w: need at least 2 numeric columns, have %d", errPrerequisite, len(cols))
	}
	m, err := domain.Correlation(s.ds)
	if err != nil {
		return err
	}
	s.correlation = m
	path, err := p.deps.Charts.CorrelationHeatmap(m)
	if err != nil {
		return err
	}
	s.addArtifact(StepCorrelationHeatmap, path)
	return nil
}

func (p *Pipeline) linearRegression(_ context.Context, s *runState) error {
	stamps, err := s.ds.Floats(domain.ColTimestamp)
	if err != nil {
		return err
	}
	temps, err := s.ds.Floats(domain.ColTemperature)
	if err != nil {
		return err
	}

	split, err := ml.TrainTestSplit(len(temps), p.opts.TestFraction, p.opts.Seed)
	if err != nil {
		return err
	}
	x := ml.Columns(stamps)
	model := ml.NewLinearRegression()
	if err := model.Fit(ml.Rows(x, split.Train), ml.Pick(temps, split.Train)); err != nil {
		return err
	}

	actual := ml.Pick(temps, split.Test)
	predicted, err := model.Predict(ml.Rows(x, split.Test))
	if err != nil {
		return err
	}
	score, err := p.recordScore(s, "linear_regression", actual, predicted, split)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.deps.Console, "Linear Regression MAE: %v\n", score.MAE)
	fmt.Fprintf(p.deps.Console, "Linear Regression MSE: %v\n", score.MSE)

	s.linear = &linearOutput{
		timestamps: ml.Pick(stamps, split.Test),
		actual:     actual,
		predicted:  predicted,
	}
	return nil
}

func (p *Pipeline) actualVsPredicted(_ context.Context, s *runState) error {
	if s.linear == nil {
		return fmt.Errorf("%w: %s did not run", errPrerequisite, StepLinearRegression)
	}
	path, err := p.deps.Charts.ActualVsPredicted(s.linear.timestamps, s.linear.actual, s.linear.predicted)
	if err != nil {
		return err
	}
	s.addArtifact(StepActualVsPredicted, path)
	return nil
}

func (p *Pipeline) isolationForest(_ context.Context, s *runState) error {
	x, err := featureMatrix(s.ds, domain.ColTemperature, domain.ColHumidity, domain.ColPressure)
	if err != nil {
		return err
	}

	forest := ml.NewIsolationForest(p.opts.Seed)
	if p.opts.Contamination > 0 {
		forest.Contamination = p.opts.Contamination
	}
	if err := forest.Fit(x); err != nil {
		return err
	}
	labels := forest.Predict(x)
	scores := forest.Scores(x)
	s.ds = s.ds.WithInts(domain.ColAnomaly, labels)

	events, err := domain.AnomalyEvents(s.ds, scores, s.result.RunID)
	if err != nil {
		return err
	}
	s.events = events
	s.result.Anomalies = len(events)
	p.metrics.Anomalies.Set(float64(len(events)))
	fmt.Fprintf(p.deps.Console, "Isolation Forest flagged %d of %d records as anomalies\n", len(events), s.ds.Len())
	return nil
}

func (p *Pipeline) randomForest(_ context.Context, s *runState) error {
	data, err := p.environmentalSplit(s.ds)
	if err != nil {
		return err
	}
	model := ml.NewRandomForestRegressor(p.opts.Seed)
	if err := model.Fit(data.xTrain, data.yTrain); err != nil {
		return err
	}
	score, err := p.recordScore(s, "random_forest", data.yTest, model.Predict(data.xTest), data.split)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.deps.Console, "Random Forest MAE: %v\n", score.MAE)

	weights := model.FeatureImportances()
	features := environmentalFeatures()
	for _, i := range ml.TopK(weights, importanceTopK) {
		s.result.Importances = append(s.result.Importances, domain.FeatureImportance{
			Feature:    features[i],
			Importance: weights[i],
		})
	}
	s.forest = true
	return nil
}

func (p *Pipeline) featureImportance(_ context.Context, s *runState) error {
	if !s.forest {
		return fmt.Errorf("%w: %s did not run", errPrerequisite, StepRandomForest)
	}
	path, err := p.deps.Charts.FeatureImportance(s.result.Importances)
	if err != nil {
		return err
	}
	s.addArtifact(StepFeatureImportance, path)
	return nil
}

func (p *Pipeline) gradientBoosting(_ context.Context, s *runState) error {
	data, err := p.environmentalSplit(s.ds)
	if err != nil {
		return err
	}
	model := ml.NewGradientBoostingRegressor(p.opts.Seed)
	if err := model.Fit(data.xTrain, data.yTrain); err != nil {
		return err
	}
	score, err := p.recordScore(s, "gradient_boosting", data.yTest, model.Predict(data.xTest), data.split)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.deps.Console, "Gradient Boosting MAE: %v\n", score.MAE)
	return nil
}

func (p *Pipeline) weatherMap(_ context.Context, s *runState) error {
	if p.deps.Map == nil {
		return fmt.Errorf("%w: no map renderer configured", errPrerequisite)
	}
	markers, err := markers(s.ds)
	if err != nil {
		return err
	}
	if len(markers) == 0 {
		return fmt.Errorf("%w: no rows have coordinates", errPrerequisite)
	}
	paths, err := p.deps.Map.Render(markers)
	if err != nil {
		return err
	}
	s.result.Markers = len(markers)
	for _, path := range paths {
		s.addArtifact(StepWeatherMap, path)
	}
	return nil
}

func (p *Pipeline) recordScore(s *runState, model string, actual, predicted []float64, split ml.Split) (domain.ModelScore, error) {
	errs, err := ml.Score(actual, predicted)
	if err != nil {
		return domain.ModelScore{}, fmt.Errorf("score %s: %w", model, err)
	}
	score := domain.ModelScore{
		Model:     model,
		MAE:       errs.MAE,
		MSE:       errs.MSE,
		TrainSize: len(split.Train),
		TestSize:  len(split.Test),
	}
	s.result.Models = append(s.result.Models, score)
	p.metrics.ModelMAE.WithLabelValues(model).Set(score.MAE)
	p.metrics.ModelMSE.WithLabelValues(model).Set(score.MSE)
	return score
}
