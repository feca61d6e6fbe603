// Package llm provides the generative model used to answer questions.
// Implementations are provider-agnostic behind the Generator interface.
package llm

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Generator produces text from a prompt.
// Implementations must be safe for concurrent use.
type Generator interface {
	// Generate returns the model's text for prompt. An empty string means the
	// model produced no text; callers decide how to present that.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds options shared by generator providers.
type Config struct {
	// Model is the provider model identifier, e.g. "gemini-1.5-flash".
	Model string

	// BaseURL of an OpenAI-compatible endpoint. Empty uses DefaultBaseURL.
	BaseURL string

	// APIKey is the authentication key for the provider.
	APIKey string

	// Temperature controls randomness; 0 keeps the model default.
	Temperature float64

	// MaxTokens limits the response length (0 = provider default).
	MaxTokens int
}

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"
