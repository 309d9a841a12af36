package domain

// Column names used by the analysis. Names are matched after [NormalizeColumnNames].
const (
	ColLocationName = "location_name"
	ColCountry      = "country"
	ColLastUpdated  = "last_updated"
	ColTemperature  = "temperature_celsius"
	ColHumidity     = "humidity"
	ColPressure     = "pressure"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"

	// Derived columns.
	ColTimestamp = "timestamp"
	ColAnomaly   = "anomaly"
)

// Anomaly labels written to [ColAnomaly].
const (
	LabelNormal  = 1
	LabelAnomaly = -1
)

// derivedColumns are added by the analysis and excluded from source-data summaries.
var derivedColumns = map[string]bool{
	ColTimestamp: true,
	ColAnomaly:   true,
}
