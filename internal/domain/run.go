package domain

import "time"

// Step outcomes recorded in a RunResult and in the steps_total metric.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// SkippedStep records a step that did not run, either because the dataset
// lacks its columns or because a step it depends on was skipped.
type SkippedStep struct {
	Step    string   `json:"step"`
	Missing []string `json:"missing,omitempty"`
	Reason  string   `json:"reason"`
}

// ModelScore holds the holdout metrics of a fitted regressor.
type ModelScore struct {
	Model     string  `json:"model"`
	MAE       float64 `json:"mae"`
	MSE       float64 `json:"mse"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
}

// FeatureImportance is the relative contribution of one model input.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Artifact is a file the run wrote to the output directory.
type Artifact struct {
	Step string `json:"step"`
	Path string `json:"path"`
}

// Marker is a single point on the rendered map.
type Marker struct {
	Lat         float64
	Lon         float64
	Temperature float64
	Label       string
}

// RunResult summarizes one analysis run.
type RunResult struct {
	RunID       string              `json:"run_id"`
	Input       string              `json:"input"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	RowsLoaded  int                 `json:"rows_loaded"`
	Clean       CleanReport         `json:"clean"`
	Geocoding   GeocodeSummary      `json:"geocoding"`
	Skipped     []SkippedStep       `json:"skipped,omitempty"`
	Models      []ModelScore        `json:"models,omitempty"`
	Importances []FeatureImportance `json:"importances,omitempty"`
	Anomalies   int                 `json:"anomalies"`
	Markers     int                 `json:"markers"`
	Artifacts   []Artifact          `json:"artifacts,omitempty"`
}

// RowsOut returns the number of rows available to the analysis steps.
func (r RunResult) RowsOut() int {
	return r.Clean.RowsOut()
}

// Ran reports whether the named step was not skipped.
func (r RunResult) Ran(step string) bool {
	for _, s := range r.Skipped {
		if s.Step == step {
			return false
		}
	}
	return true
}

// Report is everything the spreadsheet export needs from a run.
type Report struct {
	Result       RunResult
	CityAverages []GroupMean
	Correlation  CorrelationMatrix
	Anomalies    []AnomalyEvent
}
