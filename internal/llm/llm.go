// Package llm talks to chat-completion providers.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// CompletionProvider produces one chat completion for a system and user
// prompt pair.
type CompletionProvider interface {
	Complete(ctx context.Context, system, user, model string, temperature float64) (string, error)
}

// StatusError reports a response from the provider that was not a success.
// Any other error returned by a provider means the request never got a
// usable response (network, DNS, timeout).
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion request failed with status %d: %s", e.StatusCode, e.Message)
}

// Options tune how a provider reaches its endpoint.
type Options struct {
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient replaces the client built from Timeout.
	HTTPClient *http.Client
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.timeout()}
}

// New builds the named provider authenticated with apiKey.
func New(ctx context.Context, name, apiKey string, opts Options) (CompletionProvider, error) {
	switch name {
	case "", ProviderOpenAI:
		return NewOpenAIProvider(apiKey, opts), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, opts), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", name)
	}
}
