package cmd

import (
	"context"
	"time"

	"github.com/spf13/viper"

	"github.com/tinyship/reviewreply/internal/llm"
	"github.com/tinyship/reviewreply/internal/reply"
	"github.com/tinyship/reviewreply/internal/store"
)

// completionOptions reads the completion.* config keys.
func completionOptions() llm.Options {
	timeout := viper.GetDuration("completion.timeout")
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	return llm.Options{
		BaseURL: viper.GetString("completion.base_url"),
		Timeout: timeout,
	}
}

// providerFunc builds the configured completion provider per request with
// the API key from the settings record.
func providerFunc() reply.ProviderFunc {
	name := viper.GetString("completion.provider")
	opts := completionOptions()
	return func(ctx context.Context, apiKey string) (llm.CompletionProvider, error) {
		return llm.New(ctx, name, apiKey, opts)
	}
}

// newGenerator wires a reply generator to s using the configured provider.
func newGenerator(s store.Store) *reply.Generator {
	return reply.NewGenerator(s, providerFunc(), logger).WithTimeout(completionOptions().Timeout)
}

// generateTimeout bounds a CLI generation including provider setup.
func generateTimeout() time.Duration {
	return completionOptions().Timeout + 5*time.Second
}
