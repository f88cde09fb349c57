package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"regexp"
	"strings"
	"time"
)

// Adapter wraps a single provider with a per-call timeout and a bounded
// number of retries with exponential backoff for transient failures. It
// guarantees the response conforms to the expected wire shape; interpreting
// the verdict's content is the analyzer's job.
type Adapter struct {
	provider    Provider
	callTimeout time.Duration
	maxRetries  int
	backoffBase time.Duration
}

// NewAdapter creates an adapter around the given provider.
func NewAdapter(provider Provider, cfg *Config) *Adapter {
	return &Adapter{
		provider:    provider,
		callTimeout: cfg.CallTimeout,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
	}
}

// Name returns the wrapped provider's name.
func (a *Adapter) Name() string {
	return a.provider.Name()
}

// Evaluate executes a single evaluation call against the wrapped provider.
// Transient failures (timeouts, 5xx, rate limits) are retried with
// exponential backoff up to the retry budget; on exhaustion it fails with
// ProviderUnavailableError carrying the last error. A response that cannot be
// decoded into the verdict wire shape fails with ErrMalformedResponse and is
// not retried.
func (a *Adapter) Evaluate(ctx context.Context, p Prompt) (RawVerdict, error) {
	var lastErr error

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.backoffBase * time.Duration(1<<uint(attempt-1))
			log.Printf("Provider %s attempt %d failed, retrying in %v: %v", a.provider.Name(), attempt, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return RawVerdict{}, &ProviderUnavailableError{Provider: a.provider.Name(), Err: ctx.Err()}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		raw, err := a.provider.Evaluate(callCtx, p)
		cancel()

		if err != nil {
			lastErr = err
			if transient(err) && ctx.Err() == nil {
				continue
			}
			return RawVerdict{}, &ProviderUnavailableError{Provider: a.provider.Name(), Err: err}
		}

		verdict, err := decodeVerdict(raw)
		if err != nil {
			return RawVerdict{}, fmt.Errorf("%w from %s: %v", ErrMalformedResponse, a.provider.Name(), err)
		}
		return verdict, nil
	}

	return RawVerdict{}, &ProviderUnavailableError{Provider: a.provider.Name(), Err: lastErr}
}

// transient reports whether an error is worth retrying against the same
// provider: rate limits, 5xx responses, timeouts and transport failures.
func transient(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// url.Error wraps transport-level failures (connection refused, DNS)
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host")
}

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// decodeVerdict extracts the verdict JSON object from the raw model output.
// Models wrap JSON in markdown fences or surround it with prose often enough
// that decoding tolerates both.
func decodeVerdict(raw string) (RawVerdict, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return RawVerdict{}, fmt.Errorf("empty response")
	}

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	content = controlChars.ReplaceAllString(content, "")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return RawVerdict{}, fmt.Errorf("no JSON object in response")
	}

	var verdict RawVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return RawVerdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return verdict, nil
}

// NewAdapters builds adapters for every configured provider, in priority
// order. Providers missing required credentials are skipped with a warning so
// a partially configured deployment still works with the providers it has.
func NewAdapters(cfg *Config) ([]*Adapter, error) {
	var adapters []*Adapter

	for _, name := range cfg.Providers {
		var provider Provider
		switch name {
		case "openai":
			if cfg.OpenAIKey == "" {
				log.Printf("Skipping provider openai: OPENAI_API_KEY not set")
				continue
			}
			provider = NewOpenAIProvider(cfg)
		case "anthropic":
			if cfg.AnthropicKey == "" {
				log.Printf("Skipping provider anthropic: ANTHROPIC_API_KEY not set")
				continue
			}
			provider = NewAnthropicProvider(cfg)
		case "ollama":
			p, err := NewOllamaProvider(cfg)
			if err != nil {
				log.Printf("Skipping provider ollama: %v", err)
				continue
			}
			provider = p
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		adapters = append(adapters, NewAdapter(provider, cfg))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no usable LLM providers configured")
	}
	return adapters, nil
}
