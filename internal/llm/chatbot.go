package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SystemPrompt frames every question sent to the model
const SystemPrompt = `You are an expert carbon footprint assistant.
Your role is to help users understand and reduce their carbon emissions.
Provide practical, actionable advice about:
- Transportation and travel emissions
- Energy consumption and efficiency
- Waste reduction and recycling
- Diet and food choices
- Sustainable lifestyle changes

Keep responses concise, friendly, and focused on carbon reduction strategies.
Always provide specific numbers or percentages when possible.`

const assistantMarker = "Assistant:"

// Reply is the chatbot answer returned to clients
type Reply struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Model    string `json:"model,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatbotConfig holds the chatbot settings
type ChatbotConfig struct {
	Options           GenerateOptions
	RequestsPerSecond float64
	Burst             int
}

// DefaultChatbotConfig returns default configuration
func DefaultChatbotConfig() ChatbotConfig {
	return ChatbotConfig{
		Options:           DefaultGenerateOptions(),
		RequestsPerSecond: 2,
		Burst:             5,
	}
}

// Chatbot wraps a Provider with the carbon footprint prompt
type Chatbot struct {
	provider Provider
	opts     GenerateOptions
	limiter  *rate.Limiter
	logger   *zap.Logger

	queries  atomic.Int64
	failures atomic.Int64
}

// NewChatbot creates a chatbot. A non-positive rate disables limiting.
func NewChatbot(provider Provider, cfg ChatbotConfig, logger *zap.Logger) *Chatbot {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Chatbot{
		provider: provider,
		opts:     cfg.Options,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// Query asks the model a question. Failures are reported in the Reply, never
// as an error, so the handler can always answer 200.
func (c *Chatbot) Query(ctx context.Context, message string) Reply {
	c.queries.Add(1)

	if err := c.limiter.Wait(ctx); err != nil {
		c.failures.Add(1)
		c.logger.Warn("chat rate limit wait aborted", zap.Error(err))
		return Reply{Response: "Error processing your question", Error: err.Error()}
	}

	output, err := c.provider.Generate(ctx, buildPrompt(message), c.opts)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("chat generation failed",
			zap.String("provider", c.provider.Name()),
			zap.Error(err),
		)
		return failureReply(err)
	}

	return Reply{
		Success:  true,
		Response: extractAnswer(output),
		Model:    c.provider.Name(),
	}
}

// Info returns provider details and usage counters
func (c *Chatbot) Info() map[string]interface{} {
	return map[string]interface{}{
		"model":          c.provider.Name(),
		"max_new_tokens": c.opts.MaxNewTokens,
		"temperature":    c.opts.Temperature,
		"top_p":          c.opts.TopP,
		"queries":        c.queries.Load(),
		"failures":       c.failures.Load(),
	}
}

func buildPrompt(message string) string {
	var sb strings.Builder
	sb.WriteString(SystemPrompt)
	sb.WriteString("\n\nUser: ")
	sb.WriteString(message)
	sb.WriteString("\n\n")
	sb.WriteString(assistantMarker)
	return sb.String()
}

// extractAnswer keeps the text after the last assistant marker since some
// models echo the prompt back.
func extractAnswer(output string) string {
	if i := strings.LastIndex(output, assistantMarker); i >= 0 {
		return strings.TrimSpace(output[i+len(assistantMarker):])
	}
	return output
}

func failureReply(err error) Reply {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrTimeout):
		return Reply{Response: "Request timed out. Please try again.", Error: "Timeout"}
	case errors.Is(err, ErrEmptyResponse):
		return Reply{Response: "No response from model", Error: "Empty response"}
	case errors.As(err, &statusErr):
		return Reply{Response: "Error connecting to AI model", Error: fmt.Sprintf("Status code: %d", statusErr.Code)}
	default:
		return Reply{Response: "Error processing your question", Error: err.Error()}
	}
}
