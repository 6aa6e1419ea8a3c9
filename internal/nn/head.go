package nn

import (
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Head is the linear classification layer of the network held as data, so
// pooled encoder features computed elsewhere can be scored here.
type Head struct {
	Features int
	Classes  int
	Labels   []string
	Weight   []float64 // Classes x Features, row major
	Bias     []float64

	mu sync.RWMutex
}

// NewHead creates a Kaiming-initialised head
func NewHead(features, classes int, rng *rand.Rand) (*Head, error) {
	if features <= 0 || classes <= 0 {
		return nil, fmt.Errorf("invalid head size %dx%d", classes, features)
	}
	layer := Layer{Kind: KindLinear, InChannels: features, OutChannels: classes}
	w := KaimingNormal(layer, rng)

	h := &Head{
		Features: features,
		Classes:  classes,
		Weight:   make([]float64, len(w)),
		Bias:     make([]float64, classes),
	}
	for i, v := range w {
		h.Weight[i] = float64(v)
	}
	return h, nil
}

// Validate checks that the tensors match the declared sizes
func (h *Head) Validate() error {
	if h.Features <= 0 || h.Classes <= 0 {
		return fmt.Errorf("invalid head size %dx%d", h.Classes, h.Features)
	}
	if len(h.Weight) != h.Features*h.Classes {
		return fmt.Errorf("weight has %d values, expected %d", len(h.Weight), h.Features*h.Classes)
	}
	if len(h.Bias) != h.Classes {
		return fmt.Errorf("bias has %d values, expected %d", len(h.Bias), h.Classes)
	}
	if len(h.Labels) != 0 && len(h.Labels) != h.Classes {
		return fmt.Errorf("%d labels for %d classes", len(h.Labels), h.Classes)
	}
	return nil
}

// Forward computes the logits W x + b
func (h *Head) Forward(features []float64) ([]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(features) != h.Features {
		return nil, fmt.Errorf("expected %d features, got %d", h.Features, len(features))
	}

	w := mat.NewDense(h.Classes, h.Features, h.Weight)
	x := mat.NewVecDense(h.Features, features)

	var logits mat.VecDense
	logits.MulVec(w, x)
	logits.AddVec(&logits, mat.NewVecDense(h.Classes, h.Bias))

	out := make([]float64, h.Classes)
	for i := range out {
		out[i] = logits.AtVec(i)
	}
	return out, nil
}

// Predict returns independent per-class probabilities
func (h *Head) Predict(features []float64) ([]float64, error) {
	logits, err := h.Forward(features)
	if err != nil {
		return nil, err
	}
	for i, v := range logits {
		logits[i] = sigmoid(v)
	}
	return logits, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// headData is the on-disk form of a Head
type headData struct {
	Features int
	Classes  int
	Labels   []string
	Weight   []float64
	Bias     []float64
}

// Save writes the head to disk
func (h *Head) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(headData{
		Features: h.Features,
		Classes:  h.Classes,
		Labels:   h.Labels,
		Weight:   h.Weight,
		Bias:     h.Bias,
	})
}

// LoadHead reads a head written by Save
func LoadHead(path string) (*Head, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data headData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode head: %w", err)
	}

	h := &Head{
		Features: data.Features,
		Classes:  data.Classes,
		Labels:   data.Labels,
		Weight:   data.Weight,
		Bias:     data.Bias,
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}
