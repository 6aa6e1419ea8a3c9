package regression

import (
	"fmt"
	"math"
)

// Train fits a scaler and an OLS regressor on log(target) and returns the
// model together with its in-sample R² in log space.
func Train(ds *Dataset, columns []string) (*Model, float64, error) {
	if ds == nil || ds.X == nil {
		return nil, 0, ErrNoTrainingMatrix
	}
	m, n := ds.X.Dims()
	if n != len(columns) {
		return nil, 0, fmt.Errorf("dataset has %d features for %d columns, %w", n, len(columns), ErrFeatureLenMismatch)
	}
	if len(ds.Y) != m {
		return nil, 0, fmt.Errorf("dataset has %d rows and %d targets, %w", m, len(ds.Y), ErrTargetLenMismatch)
	}

	logY := make([]float64, m)
	for i, v := range ds.Y {
		if v <= 0 {
			return nil, 0, fmt.Errorf("target on row %d is %v; log target needs positive values", i, v)
		}
		logY[i] = math.Log(v)
	}

	model := &Model{
		Columns: append([]string(nil), columns...),
		Target:  TargetLog,
	}
	if err := model.Scaler.Fit(ds.X); err != nil {
		return nil, 0, fmt.Errorf("fit scaler: %w", err)
	}

	scaled, err := model.Scaler.Transform(ds.X)
	if err != nil {
		return nil, 0, err
	}
	if err := model.Regressor.Fit(scaled, logY); err != nil {
		return nil, 0, fmt.Errorf("fit regressor: %w", err)
	}

	r2, err := model.Regressor.Score(scaled, logY)
	if err != nil {
		return nil, 0, err
	}
	return model, r2, nil
}
