package models

import (
	"github.com/goccy/go-json"
	"github.com/kartoza/carbon-footprint/internal/calculations"
	"github.com/kartoza/carbon-footprint/internal/nn"
)

// HealthResponse reports whether the emission model is available
type HealthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// SaveCalculationRequest is the body of POST /api/save-calculation
type SaveCalculationRequest struct {
	Timestamp string          `json:"timestamp,omitempty"`
	FormData  json.RawMessage `json:"formData,omitempty"`
	Results   json.RawMessage `json:"results,omitempty"`
	UserID    string          `json:"userId,omitempty"`
}

// SaveCalculationResponse confirms a saved calculation
type SaveCalculationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// CalculationsResponse lists saved calculations
type CalculationsResponse struct {
	Success      bool                   `json:"success"`
	Calculations []*calculations.Record `json:"calculations"`
	Count        int                    `json:"count"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatHealthResponse identifies the chatbot service
type ChatHealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// TipsResponse carries the reduction tips for one category
type TipsResponse struct {
	Success  bool   `json:"success"`
	Category string `json:"category"`
	Tips     string `json:"tips"`
}

// FailureResponse is used by endpoints that report success flags
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ArchitectureResponse describes the ResNet for a configuration and input size
type ArchitectureResponse struct {
	InputBands    int             `json:"input_bands"`
	OutputClasses int             `json:"output_classes"`
	ParamCount    int             `json:"param_count"`
	OutputShape   []int           `json:"output_shape"`
	Stages        []nn.StageShape `json:"stages"`
	Layers        []nn.Layer      `json:"layers"`
}

// ResNetPredictRequest carries pooled encoder features for the head
type ResNetPredictRequest struct {
	Features []float64 `json:"features"`
}

// ResNetPredictResponse holds per-class probabilities
type ResNetPredictResponse struct {
	Probabilities []float64          `json:"probabilities"`
	Labels        map[string]float64 `json:"labels,omitempty"`
}
