package llm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	api *anthropic.Client
}

// NewAnthropicProvider creates a provider for apiKey. SDK retries are
// disabled: each call is a single attempt.
func NewAnthropicProvider(apiKey string, opts Options) *AnthropicProvider {
	reqOpts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(opts.timeout()),
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicProvider{api: &client}
}

// Complete returns the text of the first text block in the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	msg, err := p.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{StatusCode: apiErr.StatusCode, Message: anthropicErrorMessage(apiErr)}
		}
		return "", err
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// anthropicErrorMessage pulls error.message out of the API error body.
func anthropicErrorMessage(apiErr *anthropic.Error) string {
	var body chatErrorResponse
	_ = json.Unmarshal([]byte(apiErr.RawJSON()), &body)
	return body.Error.Message
}
