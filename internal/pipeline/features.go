package pipeline

import (
	"math"

	"github.com/couchcryptid/weather-eda/internal/domain"
	"github.com/couchcryptid/weather-eda/internal/ml"
	"gonum.org/v1/gonum/mat"
)

// environmentalFeatures are the regressor inputs for predicting temperature.
func environmentalFeatures() []string {
	return []string{domain.ColHumidity, domain.ColPressure}
}

// environmentalData is a standardized train/test partition of the
// environmental features against temperature.
type environmentalData struct {
	split  ml.Split
	xTrain *mat.Dense
	xTest  *mat.Dense
	yTrain []float64
	yTest  []float64
}

func featureMatrix(ds domain.Dataset, cols ...string) (*mat.Dense, error) {
	values := make([][]float64, len(cols))
	for i, c := range cols {
		v, err := ds.Floats(c)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return ml.Columns(values...), nil
}

// environmentalSplit partitions the rows with the configured seed and scales
// both halves with statistics learned from the training half.
func (p *Pipeline) environmentalSplit(ds domain.Dataset) (environmentalData, error) {
	x, err := featureMatrix(ds, environmentalFeatures()...)
	if err != nil {
		return environmentalData{}, err
	}
	y, err := ds.Floats(domain.ColTemperature)
	if err != nil {
		return environmentalData{}, err
	}
	split, err := ml.TrainTestSplit(len(y), p.opts.TestFraction, p.opts.Seed)
	if err != nil {
		return environmentalData{}, err
	}

	scaler := ml.NewScaler()
	xTrain, err := scaler.FitTransform(ml.Rows(x, split.Train))
	if err != nil {
		return environmentalData{}, err
	}
	xTest, err := scaler.Transform(ml.Rows(x, split.Test))
	if err != nil {
		return environmentalData{}, err
	}
	return environmentalData{
		split:  split,
		xTrain: xTrain,
		xTest:  xTest,
		yTrain: ml.Pick(y, split.Train),
		yTest:  ml.Pick(y, split.Test),
	}, nil
}

// markers builds one map marker per row with both coordinates, labelled with
// the location name when the dataset has one. Rows whose coordinates could not
// be geocoded stay in the analysis but get no marker.
func markers(ds domain.Dataset) ([]domain.Marker, error) {
	lats, err := ds.Floats(domain.ColLatitude)
	if err != nil {
		return nil, err
	}
	lons, err := ds.Floats(domain.ColLongitude)
	if err != nil {
		return nil, err
	}
	temps, err := ds.Floats(domain.ColTemperature)
	if err != nil {
		return nil, err
	}
	var names []string
	if ds.HasColumn(domain.ColLocationName) {
		names, _ = ds.Strings(domain.ColLocationName)
	}

	out := make([]domain.Marker, 0, len(temps))
	for i := range temps {
		if math.IsNaN(lats[i]) || math.IsNaN(lons[i]) {
			continue
		}
		m := domain.Marker{Lat: lats[i], Lon: lons[i], Temperature: temps[i]}
		if names != nil {
			m.Label = names[i]
		}
		out = append(out, m)
	}
	return out, nil
}
