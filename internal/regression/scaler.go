package regression

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler removes the per-column mean and scales to unit variance
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes the column means and population standard deviations of x.
// Constant columns get a scale of 1 so they transform to zero.
func (s *StandardScaler) Fit(x mat.Matrix) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	m, n := x.Dims()
	if m == 0 {
		return ErrEmptyDataset
	}

	s.Mean = make([]float64, n)
	s.Scale = make([]float64, n)
	col := make([]float64, m)
	for j := 0; j < n; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform returns (x - mean) / scale
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	m, n := x.Dims()
	if m == 0 {
		return nil, ErrEmptyDataset
	}
	if n != len(s.Mean) {
		return nil, fmt.Errorf("got %d features but scaler was fit on %d, %w", n, len(s.Mean), ErrFeatureLenMismatch)
	}

	out := mat.NewDense(m, n, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out, nil
}
