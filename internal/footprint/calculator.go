package footprint

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kartoza/carbon-footprint/internal/regression"
	"go.uber.org/zap"
)

// KgCO2PerTree is the yearly CO2 a tree offsets, used for the tree count
const KgCO2PerTree = 411.4

// maxPrediction bounds predictions to values an int holds exactly
const maxPrediction = 1 << 53

var (
	// ErrModelNotLoaded is returned when calculating without a model
	ErrModelNotLoaded = errors.New("ML models not loaded")
	// ErrPredictionOutOfRange is returned when the model output for a form
	// is not a finite, representable amount
	ErrPredictionOutOfRange = errors.New("prediction out of range")
)

// Predictor maps feature rows to emissions (kg CO2e per month)
type Predictor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// Result is the calculator response
type Result struct {
	Prediction int       `json:"prediction"`
	TreeCount  int       `json:"treeCount"`
	Breakdown  Breakdown `json:"breakdown"`
}

// Calculator wraps the loaded emission model
type Calculator struct {
	model  Predictor
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewCalculator creates a calculator; model may be nil until one is loaded
func NewCalculator(model Predictor, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{model: model, logger: logger}
}

// LoadModel reads a model artifact and swaps it in. The artifact's column
// order must match Columns.
func (c *Calculator) LoadModel(path string) error {
	m, err := regression.Load(path)
	if err != nil {
		return err
	}
	if !slices.Equal(m.Columns, Columns) {
		return fmt.Errorf("model %s was trained on different feature columns", path)
	}

	c.mu.Lock()
	c.model = m
	c.mu.Unlock()

	c.logger.Info("emission model loaded", zap.String("path", path))
	return nil
}

// Loaded reports whether a model is available
func (c *Calculator) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Calculate encodes the form and predicts the total and the breakdown
func (c *Calculator) Calculate(form FormData) (*Result, error) {
	v, err := Encode(form)
	if err != nil {
		return nil, err
	}
	return c.CalculateVector(v)
}

// CalculateVector predicts the total and the breakdown for an encoded form.
// All five rows go to the model in one batch.
func (c *Calculator) CalculateVector(v Vector) (*Result, error) {
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	if model == nil {
		return nil, ErrModelNotLoaded
	}
	if len(v) != len(Columns) {
		return nil, fmt.Errorf("feature vector has %d values, expected %d", len(v), len(Columns))
	}

	rows := make([][]float64, 0, 1+len(Categories))
	rows = append(rows, v)
	for _, cat := range Categories {
		rows = append(rows, v.Mask(categoryColumns[cat]))
	}

	preds, err := model.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(preds), len(rows))
	}

	for i, p := range preds {
		if math.IsNaN(p) || math.Abs(p) > maxPrediction {
			return nil, fmt.Errorf("%w: row %d predicted %v", ErrPredictionOutOfRange, i, p)
		}
	}

	prediction := round(preds[0])
	res := &Result{
		Prediction: prediction,
		TreeCount:  round(float64(prediction) / KgCO2PerTree),
	}
	for i, cat := range Categories {
		res.Breakdown.set(cat, round(preds[i+1]))
	}

	c.logger.Debug("footprint calculated",
		zap.Int("prediction", res.Prediction),
		zap.Int("trees", res.TreeCount),
	)
	return res, nil
}

// round rounds half to even
func round(v float64) int {
	return int(math.RoundToEven(v))
}
