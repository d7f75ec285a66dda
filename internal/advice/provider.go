package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider generates text for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIConfig configures the OpenAI chat completions provider.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIProvider generates advice with the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrUnavailable
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		// Retries would hold the caller past its own deadline; the
		// requester falls back instead.
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &EndpointError{Kind: KindStatus, Status: apiErr.StatusCode, Err: err}
		}
		return "", &EndpointError{Kind: contextKind(ctx, KindNetwork), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &EndpointError{Kind: KindEmpty, Err: ErrEmptyAdvice}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &EndpointError{Kind: KindEmpty, Err: ErrEmptyAdvice}
	}
	return text, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string { return p.model }

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var _ Provider = (*OpenAIProvider)(nil)

func describeProvider(p Provider) string {
	if op, ok := p.(*OpenAIProvider); ok {
		return fmt.Sprintf("openai:%s", op.model)
	}
	return fmt.Sprintf("%T", p)
}
