package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/googleai/vertex"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DefaultVertexModel = "gemini-1.5-flash"

type VertexCompleter struct {
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
}

func NewVertex(ctx context.Context, cfg Config) (*VertexCompleter, error) {
	cfg, err := vertexConfig(cfg)
	if err != nil {
		return nil, err
	}

	opts := []googleai.Option{
		googleai.WithCloudProject(cfg.ProjectID),
		googleai.WithCloudLocation(cfg.Region),
		googleai.WithDefaultModel(cfg.Model),
		googleai.WithDefaultTemperature(cfg.Temperature),
		googleai.WithDefaultMaxTokens(cfg.MaxTokens),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, googleai.WithCredentialsFile(cfg.CredentialsFile))
	}
	model, err := vertex.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}
	return NewVertexWithModel(model, cfg)
}

// NewVertexWithModel wraps an already constructed model, applying the same
// configuration checks as NewVertex.
func NewVertexWithModel(model llms.Model, cfg Config) (*VertexCompleter, error) {
	if model == nil {
		return nil, fmt.Errorf("vertex model is required")
	}
	cfg, err := vertexConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &VertexCompleter{
		model:       model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func vertexConfig(cfg Config) (Config, error) {
	cfg = withDefaults(cfg)
	if cfg.ProjectID == "" {
		return Config{}, &ConfigError{Provider: ProviderVertex, Field: "project_id", Reason: "cloud project is required"}
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVertexModel
	}
	return cfg, nil
}

func (c *VertexCompleter) Provider() string { return ProviderVertex }

func (c *VertexCompleter) Model() string { return c.modelName }

func (c *VertexCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithModel(c.modelName),
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", classifyVertexError(err)
	}
	return text, nil
}

func classifyVertexError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &BackendError{
			Provider:   ProviderVertex,
			StatusCode: apiErr.Code,
			Retryable:  retryableStatus(apiErr.Code),
			Err:        err,
		}
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return &BackendError{Provider: ProviderVertex, Retryable: retryableCode(st.Code()), Err: err}
	}
	return &BackendError{Provider: ProviderVertex, Retryable: retryableTransport(err), Err: err}
}

func retryableCode(code codes.Code) bool {
	switch code {
	case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return true
	default:
		return false
	}
}
