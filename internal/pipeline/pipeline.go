package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/observability"
	"github.com/google/uuid"
)

// SummaryFile is the JSON run summary written to the output directory.
const SummaryFile = "run_summary.json"

// Anomaly publishing retries with exponential backoff: 200ms doubling up to 5s.
const (
	publishAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 5 * time.Second
)

// ChartRenderer draws the analysis charts and returns the written file paths.
type ChartRenderer interface {
	CityAverages(ds domain.Dataset) (string, error)
	TemperatureHumidity(ds domain.Dataset) (string, error)
	TemperatureDistribution(ds domain.Dataset) (string, error)
	CorrelationHeatmap(m domain.CorrelationMatrix) (string, error)
	TemperatureTrend(ds domain.Dataset) (string, error)
	AnomalyScatter(ds domain.Dataset) (string, error)
	ActualVsPredicted(timestamps, actual, predicted []float64) (string, error)
	EnvironmentalPairs(ds domain.Dataset) (string, error)
	FeatureImportance(importances []domain.FeatureImportance) (string, error)
}

// MapRenderer writes the weather map and returns the written file paths.
type MapRenderer interface {
	Render(markers []domain.Marker) ([]string, error)
}

// ReportWriter exports the run as a spreadsheet.
type ReportWriter interface {
	Write(report domain.Report) (string, error)
}

// AnomalyPublisher delivers anomaly events to downstream consumers.
type AnomalyPublisher interface {
	Publish(ctx context.Context, events []domain.AnomalyEvent) error
}

// ArtifactStore keeps a copy of every output file.
type ArtifactStore interface {
	Upload(ctx context.Context, key, path string) error
}

// Options tunes the models and names the output directory.
type Options struct {
	OutputDir     string
	Seed          int64
	TestFraction  float64
	Contamination float64
}

// Deps are the collaborators a run writes through. Charts and Map are
// required; the rest are optional and skipped when nil.
type Deps struct {
	Charts    ChartRenderer
	Map       MapRenderer
	Report    ReportWriter
	Publisher AnomalyPublisher
	Store     ArtifactStore
	Geocoder  domain.Geocoder

	// Console receives the human-readable analysis report. Defaults to io.Discard.
	Console io.Writer
}

// Pipeline runs the load, clean, analyze sequence once per call to Run.
type Pipeline struct {
	opts    Options
	deps    Deps
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline with the given collaborators and observability.
func New(opts Options, deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if deps.Console == nil {
		deps.Console = io.Discard
	}
	return &Pipeline{
		opts:    opts,
		deps:    deps,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("analysis has not completed yet")
	}
	return nil
}

// Run analyzes the CSV at path. Missing columns skip the steps that need them;
// any other failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, path string) (domain.RunResult, error) {
	s := &runState{
		result: domain.RunResult{
			RunID:     uuid.NewString(),
			Input:     path,
			StartedAt: domain.Now().UTC(),
		},
	}
	logger := p.logger.With("run_id", s.result.RunID)
	logger.Info("analysis started", "input", path)

	err := p.run(ctx, s, logger)

	s.result.FinishedAt = domain.Now().UTC()
	p.metrics.RunDuration.Set(s.result.FinishedAt.Sub(s.result.StartedAt).Seconds())
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(domain.OutcomeFailed).Inc()
		logger.Error("analysis failed", "error", err)
		return s.result, err
	}

	p.metrics.RunsTotal.WithLabelValues(domain.OutcomeSucceeded).Inc()
	p.ready.Store(true)
	logger.Info("analysis complete",
		"rows", s.result.RowsOut(),
		"skipped", len(s.result.Skipped),
		"artifacts", len(s.result.Artifacts),
		"duration", s.result.FinishedAt.Sub(s.result.StartedAt),
	)
	return s.result, nil
}

func (p *Pipeline) run(ctx context.Context, s *runState, logger *slog.Logger) error {
	ds, err := domain.LoadCSV(s.result.Input)
	if err != nil {
		return err
	}
	s.result.RowsLoaded = ds.Len()
	p.metrics.Rows.WithLabelValues("loaded").Set(float64(ds.Len()))
	logger.Info("dataset loaded", "rows", ds.Len(), "columns", len(ds.Columns()))
	p.printOverview(ds)

	ds, err = domain.NormalizeColumnNames(ds)
	if err != nil {
		return err
	}
	p.printColumns(ds)

	ds, report, err := domain.Clean(ds)
	if err != nil {
		return err
	}
	s.result.Clean = report
	p.recordClean(report, logger)

	ds, err = domain.DeriveTimestamp(ds)
	if err != nil {
		return err
	}

	if p.deps.Geocoder != nil {
		var summary domain.GeocodeSummary
		ds, summary = domain.EnrichWithGeocoding(ctx, ds, p.deps.Geocoder, logger)
		s.result.Geocoding = summary
		logger.Info("geocoding finished",
			"mode", summary.Mode,
			"lookups", summary.Lookups,
			"resolved", summary.Resolved,
			"failed", summary.Failed,
		)
	}
	s.ds = ds

	for _, step := range p.steps() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}
		if err := p.runStep(ctx, step, s, logger); err != nil {
			return err
		}
	}

	p.exportReport(s, logger)
	p.publishAnomalies(ctx, s, logger)
	p.writeSummary(s, logger)
	p.uploadArtifacts(ctx, s, logger)
	p.printSummary(s.result)
	return nil
}

// runStep gates a step on its columns, runs it and records the outcome.
func (p *Pipeline) runStep(ctx context.Context, step Step, s *runState, logger *slog.Logger) error {
	capability := domain.CheckColumns(s.ds, step.Requires...)
	if !capability.Satisfied() {
		p.skip(s, step.Name, capability.Missing, capability.Err().Error(), logger)
		return nil
	}

	start := time.Now()
	err := step.run(ctx, s)
	p.metrics.StepDuration.WithLabelValues(step.Name).Observe(time.Since(start).Seconds())

	var mce *domain.MissingColumnError
	switch {
	case err == nil:
		p.metrics.StepsTotal.WithLabelValues(step.Name, domain.OutcomeSucceeded).Inc()
		logger.Debug("step finished", "step", step.Name, "duration", time.Since(start))
		return nil
	case errors.As(err, &mce):
		p.skip(s, step.Name, mce.Columns, err.Error(), logger)
		return nil
	case errors.Is(err, domain.ErrMissingColumn), errors.Is(err, errPrerequisite):
		p.skip(s, step.Name, nil, err.Error(), logger)
		return nil
	default:
		p.metrics.StepsTotal.WithLabelValues(step.Name, domain.OutcomeFailed).Inc()
		return fmt.Errorf("%s: %w", step.Name, err)
	}
}

func (p *Pipeline) skip(s *runState, step string, missing []string, reason string, logger *slog.Logger) {
	s.result.Skipped = append(s.result.Skipped, domain.SkippedStep{Step: step, Missing: missing, Reason: reason})
	p.metrics.StepsTotal.WithLabelValues(step, domain.OutcomeSkipped).Inc()
	logger.Warn("step skipped", "step", step, "reason", reason)
	fmt.Fprintf(p.deps.Console, "Skipping %s: %s\n", step, reason)
}

func (p *Pipeline) recordClean(report domain.CleanReport, logger *slog.Logger) {
	p.metrics.Rows.WithLabelValues("dropped_missing").Set(float64(report.DroppedMissing))
	p.metrics.Rows.WithLabelValues("dropped_outliers").Set(float64(report.DroppedOutliers))
	p.metrics.Rows.WithLabelValues("retained").Set(float64(report.RowsOut()))
	logger.Info("dataset cleaned",
		"rows_in", report.RowsIn,
		"coerced_to_missing", report.CoercedToMissing,
		"dropped_missing", report.DroppedMissing,
		"dropped_outliers", report.DroppedOutliers,
		"rows_out", report.RowsOut(),
		"lower_bound", report.Bounds.Lower,
		"upper_bound", report.Bounds.Upper,
	)
}

func (p *Pipeline) exportReport(s *runState, logger *slog.Logger) {
	if p.deps.Report == nil {
		return
	}
	path, err := p.deps.Report.Write(domain.Report{
		Result:       s.result,
		CityAverages: s.cityMeans,
		Correlation:  s.correlation,
		Anomalies:    s.events,
	})
	if err != nil {
		logger.Error("report export failed", "error", err)
		return
	}
	s.addArtifact("report", path)
}

func (p *Pipeline) publishAnomalies(ctx context.Context, s *runState, logger *slog.Logger) {
	if p.deps.Publisher == nil || len(s.events) == 0 {
		return
	}
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := p.deps.Publisher.Publish(ctx, s.events)
		if err == nil {
			p.metrics.AnomaliesPublished.Add(float64(len(s.events)))
			logger.Info("anomalies published", "events", len(s.events), "attempts", attempt)
			return
		}
		p.metrics.PublishErrors.Inc()
		if attempt == publishAttempts {
			logger.Error("anomaly publish failed", "error", err, "events", len(s.events), "attempts", attempt)
			return
		}
		logger.Warn("anomaly publish failed, retrying", "error", err, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) writeSummary(s *runState, logger *slog.Logger) {
	if p.opts.OutputDir == "" {
		return
	}
	data, err := json.MarshalIndent(s.result, "", "  ")
	if err != nil {
		logger.Error("encode run summary failed", "error", err)
		return
	}
	path := filepath.Join(p.opts.OutputDir, SummaryFile)
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		logger.Error("create output dir failed", "error", err)
		return
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		logger.Error("write run summary failed", "error", err)
		return
	}
	s.addArtifact("summary", path)
}

// uploadArtifacts copies every output file to the artifact store under
// <date>/<run id>/<file name>.
func (p *Pipeline) uploadArtifacts(ctx context.Context, s *runState, logger *slog.Logger) {
	if p.deps.Store == nil {
		return
	}
	prefix := s.result.StartedAt.Format("2006-01-02") + "/" + s.result.RunID
	for _, a := range s.result.Artifacts {
		key := prefix + "/" + filepath.Base(a.Path)
		if err := p.deps.Store.Upload(ctx, key, a.Path); err != nil {
			p.metrics.UploadErrors.Inc()
			logger.Error("artifact upload failed", "key", key, "error", err)
			continue
		}
		p.metrics.ArtifactsUploaded.Inc()
	}
}
