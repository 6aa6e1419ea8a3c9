// Package llm passes user questions to a hosted language model and shapes
// the answers for the chatbot endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the upstream model does not answer in time
	ErrTimeout = errors.New("llm request timed out")
	// ErrEmptyResponse is returned when the model answers with no generations
	ErrEmptyResponse = errors.New("llm returned an empty response")
)

// StatusError reports a non-200 answer from the hosted model
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Status code: %d", e.Code)
}

// GenerateOptions are the sampling parameters sent with each prompt
type GenerateOptions struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
}

// DefaultGenerateOptions returns the sampling parameters used by the chatbot
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxNewTokens: 200,
		Temperature:  0.7,
		TopP:         0.95,
	}
}

// Provider generates text from a prompt
type Provider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// Name is the short model name reported to clients
	Name() string
}
