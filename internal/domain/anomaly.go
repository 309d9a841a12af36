package domain

import (
	"fmt"
	"time"
)

// AnomalyEvent describes one record the isolation forest labelled anomalous.
type AnomalyEvent struct {
	RunID       string    `json:"run_id"`
	Row         int       `json:"row"`
	Location    string    `json:"location,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	Temperature float64   `json:"temperature_celsius"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Score       float64   `json:"score"`
	DetectedAt  time.Time `json:"detected_at"`
}

// AnomalyEvents builds an event for every row whose anomaly label is
// LabelAnomaly. scores holds the per-row anomaly score and must be aligned
// with the dataset rows.
func AnomalyEvents(ds Dataset, scores []float64, runID string) ([]AnomalyEvent, error) {
	if err := requireColumns(ds, ColAnomaly, ColLastUpdated, ColTemperature, ColHumidity, ColPressure); err != nil {
		return nil, fmt.Errorf("anomaly events: %w", err)
	}
	if len(scores) != ds.Len() {
		return nil, fmt.Errorf("anomaly events: %d scores for %d rows", len(scores), ds.Len())
	}

	labels, err := ds.Ints(ColAnomaly)
	if err != nil {
		return nil, fmt.Errorf("anomaly events: %w", err)
	}
	times, err := ds.Times(ColLastUpdated)
	if err != nil {
		return nil, fmt.Errorf("anomaly events: %w", err)
	}
	temps, _ := ds.Floats(ColTemperature)
	humidity, _ := ds.Floats(ColHumidity)
	pressure, _ := ds.Floats(ColPressure)

	var locations []string
	if ds.HasColumn(ColLocationName) {
		locations, _ = ds.Strings(ColLocationName)
	}

	detected := Now().UTC()
	var events []AnomalyEvent
	for i, label := range labels {
		if label != LabelAnomaly {
			continue
		}
		e := AnomalyEvent{
			RunID:       runID,
			Row:         i,
			LastUpdated: times[i],
			Temperature: temps[i],
			Humidity:    humidity[i],
			Pressure:    pressure[i],
			Score:       scores[i],
			DetectedAt:  detected,
		}
		if locations != nil {
			e.Location = locations[i]
		}
		events = append(events, e)
	}
	return events, nil
}
