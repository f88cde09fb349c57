package llm

import (
	"context"
	"fmt"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// OllamaProvider implements Provider backed by a local Ollama instance.
// Useful for deployments that cannot send post content to hosted APIs.
type OllamaProvider struct {
	model  string
	client *ollama.Client
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider builds a provider talking to the Ollama host configured
// in the environment (OLLAMA_HOST).
func NewOllamaProvider(cfg *Config) (*OllamaProvider, error) {
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &OllamaProvider{
		model:  cfg.OllamaModel,
		client: client,
	}, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Evaluate generates a completion for the prompt, accumulating the streamed
// response chunks into one string.
func (p *OllamaProvider) Evaluate(ctx context.Context, prompt Prompt) (string, error) {
	var response strings.Builder

	err := p.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  p.model,
		System: prompt.System,
		Prompt: prompt.User,
	}, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return strings.TrimSpace(response.String()), nil
}
