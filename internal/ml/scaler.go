package ml

import (
	"fmt"

	"github.com/YuminosukeSato/scigo/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Scaler centers each feature and scales it to unit variance.
type Scaler struct {
	inner *preprocessing.StandardScaler
	cols  int
}

// NewScaler returns an unfitted scaler.
func NewScaler() *Scaler {
	return &Scaler{inner: preprocessing.NewStandardScaler(true, true)}
}

// Fit learns per-feature mean and standard deviation.
func (s *Scaler) Fit(x mat.Matrix) error {
	if isEmpty(x) {
		return fmt.Errorf("%w: scaler: no samples", ErrModelFit)
	}
	if err := s.inner.Fit(x); err != nil {
		return fmt.Errorf("%w: scaler: %w", ErrModelFit, err)
	}
	_, s.cols = x.Dims()
	return nil
}

// Transform returns the standardized copy of x.
func (s *Scaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	if s.cols == 0 {
		return nil, fmt.Errorf("%w: scaler: not fitted", ErrModelFit)
	}
	if _, c := x.Dims(); c != s.cols {
		return nil, fmt.Errorf("%w: scaler: fitted on %d features, got %d", ErrModelFit, s.cols, c)
	}
	out, err := s.inner.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("scaler transform: %w", err)
	}
	return mat.DenseCopyOf(out), nil
}

// FitTransform fits on x and returns its standardized copy.
func (s *Scaler) FitTransform(x mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
