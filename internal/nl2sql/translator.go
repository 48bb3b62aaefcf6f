package nl2sql

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sqlscribe/sqlscribe/internal/llm"
	"github.com/sqlscribe/sqlscribe/internal/schema"
)

type Request struct {
	Question string
	Catalog  schema.Catalog
	Examples string
}

type GeneratedQuery struct {
	ID          string    `json:"id"`
	SQL         string    `json:"sql"`
	Question    string    `json:"question"`
	GeneratedAt time.Time `json:"generated_at"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (GeneratedQuery, error)
}

// Generator turns a question into SQL: format the catalog, build the prompt,
// ask the completer, extract the statement. It keeps no state between calls.
type Generator struct {
	completer llm.Completer
	prompt    PromptBuilder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewGenerator(completer llm.Completer, prompt PromptBuilder, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		completer: completer,
		prompt:    prompt,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

func (g *Generator) GenerateSQL(ctx context.Context, question string, catalog schema.Catalog, examples string) (string, error) {
	generated, err := g.Translate(ctx, Request{Question: question, Catalog: catalog, Examples: examples})
	if err != nil {
		return "", err
	}
	return generated.SQL, nil
}

func (g *Generator) Translate(ctx context.Context, req Request) (GeneratedQuery, error) {
	prompt := g.prompt.Build(PromptContext{
		Question:        req.Question,
		FormattedSchema: schema.Format(req.Catalog),
		SampleQueries:   req.Examples,
	})

	start := time.Now()
	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		g.logger.WarnContext(ctx, "completion failed",
			slog.String("provider", g.completer.Provider()),
			slog.Bool("retryable", llm.IsRetryable(err)),
			slog.String("duration", time.Since(start).String()),
			slog.Any("error", err),
		)
		return GeneratedQuery{}, &GenerationError{Kind: KindBackend, Err: err}
	}

	sqlText := ExtractSQL(raw)
	if strings.TrimSpace(sqlText) == "" {
		g.logger.WarnContext(ctx, "completion contained no sql",
			slog.String("provider", g.completer.Provider()),
			slog.Int("raw_bytes", len(raw)),
		)
		return GeneratedQuery{}, &GenerationError{Kind: KindEmptyResult, Err: ErrEmptyResult}
	}

	g.logger.DebugContext(ctx, "sql generated",
		slog.String("provider", g.completer.Provider()),
		slog.String("model", g.completer.Model()),
		slog.Int("tables", req.Catalog.Len()),
		slog.String("duration", time.Since(start).String()),
	)
	return GeneratedQuery{
		ID:          g.newID(),
		SQL:         sqlText,
		Question:    req.Question,
		GeneratedAt: g.now(),
		Provider:    g.completer.Provider(),
		Model:       g.completer.Model(),
	}, nil
}
