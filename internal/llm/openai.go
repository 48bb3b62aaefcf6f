package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT3Dot5Turbo

type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAI(cfg Config) (*OpenAICompleter, error) {
	cfg = withDefaults(cfg)
	if cfg.APIKey == "" {
		return nil, &ConfigError{Provider: ProviderOpenAI, Field: "api_key", Reason: "api key is required"}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *OpenAICompleter) Provider() string { return ProviderOpenAI }

func (c *OpenAICompleter) Model() string { return c.model }

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Provider: ProviderOpenAI, Err: fmt.Errorf("empty chat completion choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{
			Provider:   ProviderOpenAI,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  retryableStatus(apiErr.HTTPStatusCode),
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &BackendError{
			Provider:   ProviderOpenAI,
			StatusCode: reqErr.HTTPStatusCode,
			Retryable:  reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode),
			Err:        err,
		}
	}
	return &BackendError{Provider: ProviderOpenAI, Retryable: retryableTransport(err), Err: err}
}
