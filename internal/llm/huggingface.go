package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultHuggingFaceURL   = "https://api-inference.huggingface.co"
	DefaultHuggingFaceModel = "mistralai/Mistral-7B-Instruct-v0.1"
	DefaultTimeout          = 30 * time.Second
)

// HuggingFaceConfig configures the Inference API provider
type HuggingFaceConfig struct {
	APIToken string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// HuggingFace calls the Hugging Face Inference API text generation task
type HuggingFace struct {
	client  *http.Client
	token   string
	baseURL string
	model   string
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFace creates the provider, filling in defaults for empty fields
func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHuggingFaceModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &HuggingFace{
		client:  &http.Client{Timeout: cfg.Timeout},
		token:   cfg.APIToken,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Name returns the model name without its organisation prefix
func (h *HuggingFace) Name() string {
	name := h.model
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-Instruct-v0.1")
}

// Model returns the full model identifier
func (h *HuggingFace) Model() string {
	return h.model
}

// Generate posts the prompt and returns the first generation
func (h *HuggingFace) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: opts.MaxNewTokens,
			Temperature:  opts.Temperature,
			TopP:         opts.TopP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := h.baseURL + "/models/" + h.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var generations []hfGeneration
	if err := json.Unmarshal(data, &generations); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(generations) == 0 {
		return "", ErrEmptyResponse
	}
	return generations[0].GeneratedText, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
