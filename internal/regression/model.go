package regression

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

// TargetLog marks a model fit on log(target); predictions are exponentiated.
const TargetLog = "log"

// Model is the on-disk scaler + regressor pair
type Model struct {
	Columns   []string       `json:"columns"`
	Scaler    StandardScaler `json:"scaler"`
	Regressor OLSRegression  `json:"regressor"`
	Target    string         `json:"target,omitempty"`
}

// Load reads a model artifact from disk and validates it
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model file %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the model artifact as indented JSON
func (m *Model) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// Validate checks that the scaler and regressor agree with the column list
func (m *Model) Validate() error {
	n := len(m.Columns)
	if n == 0 {
		return fmt.Errorf("model has no columns")
	}
	if len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
		return fmt.Errorf("scaler has %d/%d entries for %d columns, %w",
			len(m.Scaler.Mean), len(m.Scaler.Scale), n, ErrFeatureLenMismatch)
	}
	if len(m.Regressor.Coef) != n {
		return fmt.Errorf("regressor has %d coefficients for %d columns, %w", len(m.Regressor.Coef), n, ErrFeatureLenMismatch)
	}
	for i, s := range m.Scaler.Scale {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("scaler scale for column %q is %v", m.Columns[i], s)
		}
	}
	switch m.Target {
	case "", TargetLog:
	default:
		return fmt.Errorf("unknown target transform %q", m.Target)
	}
	return nil
}

// Predict scales each row, applies the regressor and inverts the target
// transform.
func (m *Model) Predict(rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, ErrNoDesignMatrix
	}
	n := len(m.Columns)
	x := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d features, expected %d, %w", i, len(row), n, ErrFeatureLenMismatch)
		}
		x.SetRow(i, row)
	}

	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	out, err := m.Regressor.Predict(scaled)
	if err != nil {
		return nil, err
	}
	if m.Target == TargetLog {
		for i := range out {
			out[i] = math.Exp(out[i])
		}
	}
	return out, nil
}
