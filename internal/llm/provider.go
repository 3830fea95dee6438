package llm

import (
	"context"
	"errors"
)

// Message is a single role-tagged entry sent to a completion endpoint
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest contains chat completion parameters
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completion contains the model reply
type Completion struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// ErrEmptyCompletion is returned when the endpoint answers without any choice
var ErrEmptyCompletion = errors.New("empty completion")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete sends the conversation and returns the model reply
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// SystemPrompt joins all system messages, for providers that take the system prompt separately
func SystemPrompt(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
