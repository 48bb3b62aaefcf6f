package validate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	MessageValid          = "query is valid"
	MessageNotInitialized = "client not initialized"
	MessageEmptySQL       = "sql is required"
)

// DryRunner checks a statement without executing it.
type DryRunner interface {
	DryRun(ctx context.Context, sqlText string) error
}

type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type Validator struct {
	engine DryRunner
	logger *slog.Logger
}

func New(engine DryRunner, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Validator{engine: engine, logger: logger}
}

// Validate always returns a Result. Engine errors and panics are reported as
// invalid with the engine's message.
func (v *Validator) Validate(ctx context.Context, sqlText string) (result Result) {
	if v == nil || isNil(v.engine) {
		return Result{Valid: false, Message: MessageNotInitialized}
	}
	if strings.TrimSpace(sqlText) == "" {
		return Result{Valid: false, Message: MessageEmptySQL}
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			v.logger.ErrorContext(ctx, "dry run panicked", slog.Any("panic", recovered))
			result = Result{Valid: false, Message: fmt.Sprintf("dry run failed: %v", recovered)}
		}
	}()

	if err := v.engine.DryRun(ctx, sqlText); err != nil {
		v.logger.DebugContext(ctx, "query rejected by dry run", slog.String("reason", err.Error()))
		return Result{Valid: false, Message: err.Error()}
	}
	return Result{Valid: true, Message: MessageValid}
}
