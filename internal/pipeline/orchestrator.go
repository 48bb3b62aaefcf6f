package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/schema"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

type Validator interface {
	Validate(ctx context.Context, sqlText string) validate.Result
}

type Executor interface {
	Execute(ctx context.Context, request query.Request) (query.Result, error)
}

// Orchestrator moves a Run between states. Each step is triggered by the
// caller; nothing is chained or retried here.
type Orchestrator struct {
	translator nl2sql.Translator
	validator  Validator
	executor   Executor
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrchestrator(translator nl2sql.Translator, validator Validator, executor Executor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		translator: translator,
		validator:  validator,
		executor:   executor,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate drives Idle -> Generating -> Generated, or Failed when the
// translator returns an error.
func (o *Orchestrator) Generate(ctx context.Context, run *Run, catalog schema.Catalog, examples string) error {
	if err := run.transition(StateGenerating, o.now()); err != nil {
		return err
	}
	if o.translator == nil {
		return o.fail(ctx, run, fmt.Errorf("translator is not configured"))
	}

	generated, err := o.translator.Translate(ctx, nl2sql.Request{
		Question: run.Question,
		Catalog:  catalog,
		Examples: examples,
	})
	if err != nil {
		return o.fail(ctx, run, err)
	}
	run.Query = generated
	return run.transition(StateGenerated, o.now())
}

// Validate drives Generated -> Validating -> Validated or Rejected. The only
// error it returns is ErrInvalidTransition; a rejection is a result.
func (o *Orchestrator) Validate(ctx context.Context, run *Run) (validate.Result, error) {
	if err := run.transition(StateValidating, o.now()); err != nil {
		return validate.Result{}, err
	}

	var result validate.Result
	if o.validator == nil {
		result = validate.Result{Valid: false, Message: validate.MessageNotInitialized}
	} else {
		result = o.validator.Validate(ctx, run.Query.SQL)
	}
	run.Validation = &result

	next := StateValidated
	if !result.Valid {
		next = StateRejected
		o.logger.InfoContext(ctx, "generated query rejected",
			slog.String("run_id", run.ID),
			slog.String("reason", result.Message),
		)
	}
	if err := run.transition(next, o.now()); err != nil {
		return result, err
	}
	return result, nil
}

// Execute drives Generated|Validated -> Executing -> Executed or Failed.
func (o *Orchestrator) Execute(ctx context.Context, run *Run, rowLimit int) (query.Result, error) {
	if err := run.transition(StateExecuting, o.now()); err != nil {
		return query.Result{}, err
	}
	if o.executor == nil {
		return query.Result{}, o.fail(ctx, run, fmt.Errorf("query engine is not configured"))
	}
	if strings.TrimSpace(run.Query.SQL) == "" {
		return query.Result{}, o.fail(ctx, run, query.ErrEmptySQL)
	}

	result, err := o.executor.Execute(ctx, query.Request{SQL: run.Query.SQL, RowLimit: rowLimit})
	if err != nil {
		return query.Result{}, o.fail(ctx, run, err)
	}
	run.Result = &result
	if err := run.transition(StateExecuted, o.now()); err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, cause error) error {
	from := run.State
	run.Err = cause
	if err := run.transition(StateFailed, o.now()); err != nil {
		return err
	}
	o.logger.WarnContext(ctx, "pipeline step failed",
		slog.String("run_id", run.ID),
		slog.String("step", string(from)),
		slog.Any("error", cause),
	)
	return cause
}
