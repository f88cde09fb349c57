// Package llm normalizes calls to heterogeneous language-model backends into
// one request/response contract. One Provider implementation exists per
// backend; the Adapter wraps a single provider with timeout, retry and
// backoff handling. Failover between providers is the caller's policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Prompt is the structured evaluation request sent to a provider.
type Prompt struct {
	System string
	User   string
}

// RawVerdict is the loosely-typed verdict a provider returns. Fields that
// models frequently get wrong (numbers as strings, floats for integers) are
// kept as interface{} so the analyzer can coerce them with a confidence
// penalty instead of failing outright.
type RawVerdict struct {
	Grade         interface{} `json:"grade"`
	Verdict       string      `json:"verdict"`
	Justification string      `json:"justification"`
	Sentiment     string      `json:"sentiment"`
	Confidence    interface{} `json:"confidence"`
	Sources       []string    `json:"sources"`
}

// Provider is a single language-model backend. Evaluate returns the model's
// raw text response; it does not interpret the content.
type Provider interface {
	Name() string
	Evaluate(ctx context.Context, p Prompt) (string, error)
}

// ErrMalformedResponse indicates a provider responded but the payload did not
// conform to the expected wire shape. Not retried against the same provider.
var ErrMalformedResponse = errors.New("malformed provider response")

// ProviderUnavailableError indicates a provider could not produce a response
// after the retry budget was exhausted. The caller may fail over to the next
// configured provider.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// apiError is a non-2xx HTTP response from a provider backend.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.status, e.body)
}

// transient reports whether the failure is worth retrying: rate limits and
// 5xx-class errors.
func (e *apiError) transient() bool {
	return e.status == 429 || e.status >= 500
}

// Config holds provider configuration loaded from the environment.
type Config struct {
	// Priority order of enabled providers, e.g. "openai,anthropic,ollama".
	Providers []string

	OpenAIKey      string
	OpenAIEndpoint string
	OpenAIModel    string

	AnthropicKey      string
	AnthropicEndpoint string
	AnthropicModel    string

	OllamaModel string

	CallTimeout time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

// LoadConfig loads provider configuration from environment variables
func LoadConfig() *Config {
	timeout, err := time.ParseDuration(getEnv("LLM_CALL_TIMEOUT", "60s"))
	if err != nil {
		timeout = 60 * time.Second
	}

	var providers []string
	for _, p := range strings.Split(getEnv("LLM_PROVIDERS", "openai"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			providers = append(providers, p)
		}
	}

	return &Config{
		Providers:         providers,
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIEndpoint:    getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicEndpoint: getEnv("ANTHROPIC_ENDPOINT", "https://api.anthropic.com"),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3.1"),
		CallTimeout:       timeout,
		MaxRetries:        3,
		BackoffBase:       time.Second,
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
