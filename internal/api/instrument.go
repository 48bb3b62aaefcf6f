package api

import (
	"context"
	"errors"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/pipeline"
	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

type observedTranslator struct {
	next     nl2sql.Translator
	provider string
}

func (t observedTranslator) Translate(ctx context.Context, req nl2sql.Request) (nl2sql.GeneratedQuery, error) {
	start := time.Now()
	generated, err := t.next.Translate(ctx, req)
	outcome := observability.OutcomeOK
	switch {
	case errors.Is(err, nl2sql.ErrEmptyResult):
		outcome = observability.OutcomeEmpty
	case err != nil:
		outcome = observability.OutcomeError
	}
	observability.ObserveGeneration(t.provider, outcome, time.Since(start))
	return generated, err
}

type observedValidator struct {
	next pipeline.Validator
}

func (v observedValidator) Validate(ctx context.Context, sqlText string) validate.Result {
	result := v.next.Validate(ctx, sqlText)
	observability.ObserveValidation(result.Valid)
	return result
}

type observedExecutor struct {
	next pipeline.Executor
}

func (e observedExecutor) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	start := time.Now()
	result, err := e.next.Execute(ctx, request)
	observability.ObserveExecution(len(result.Rows), time.Since(start), err)
	return result, err
}
