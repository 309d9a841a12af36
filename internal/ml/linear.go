package ml

import (
	"fmt"

	"github.com/YuminosukeSato/scigo/linear"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is an ordinary least squares fit over standardized
// features. Raw Unix timestamps are ill-conditioned for the normal equations,
// so inputs are scaled with statistics learned at fit time.
type LinearRegression struct {
	scaler *Scaler
	model  *linear.LinearRegression
}

// NewLinearRegression returns an unfitted model.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit learns the scaling and the regression coefficients.
func (m *LinearRegression) Fit(x mat.Matrix, y []float64) error {
	r, c := x.Dims()
	if isEmpty(x) || r != len(y) {
		return fmt.Errorf("%w: linear regression: %d samples, %d targets", ErrModelFit, r, len(y))
	}
	if r <= c {
		return fmt.Errorf("%w: linear regression: %d samples for %d features", ErrModelFit, r, c)
	}

	scaler := NewScaler()
	scaled, err := scaler.FitTransform(x)
	if err != nil {
		return err
	}
	model := linear.NewLinearRegression()
	if err := model.Fit(scaled, mat.NewDense(r, 1, append([]float64(nil), y...))); err != nil {
		return fmt.Errorf("%w: linear regression: %w", ErrModelFit, err)
	}
	m.scaler, m.model = scaler, model
	return nil
}

// Predict returns the fitted value for every row of x.
func (m *LinearRegression) Predict(x mat.Matrix) ([]float64, error) {
	if m.model == nil {
		return nil, fmt.Errorf("%w: linear regression: not fitted", ErrModelFit)
	}
	scaled, err := m.scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	pred, err := m.model.Predict(scaled)
	if err != nil {
		return nil, fmt.Errorf("linear regression predict: %w", err)
	}
	return mat.Col(nil, 0, pred), nil
}
