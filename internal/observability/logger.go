package observability

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sqlscribe/sqlscribe/internal/config"
)

type ctxKey string

const (
	traceIDKey      ctxKey = "trace_id"
	requestScopeKey ctxKey = "request_scope"
)

// NewLogger tags every record with the service, the warehouse engine and the
// completion provider it was started with.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	options := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, options)
	} else {
		handler = slog.NewTextHandler(writer, options)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("engine", cfg.Engine.Kind),
		slog.String("llm_provider", cfg.LLM.Provider),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// requestScope carries facts learned deep in the handler chain, such as the
// authenticated caller, back out to the access log.
type requestScope struct {
	mu      sync.Mutex
	subject string
}

func contextWithRequestScope(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestScopeKey).(*requestScope); ok {
		return ctx
	}
	return context.WithValue(ctx, requestScopeKey, &requestScope{})
}

// SetSubject records the caller that authenticated the request. It is a no-op
// outside TraceMiddleware.
func SetSubject(ctx context.Context, subject string) {
	scope, ok := ctx.Value(requestScopeKey).(*requestScope)
	if !ok {
		return
	}
	scope.mu.Lock()
	scope.subject = subject
	scope.mu.Unlock()
}

func SubjectFromContext(ctx context.Context) string {
	scope, ok := ctx.Value(requestScopeKey).(*requestScope)
	if !ok {
		return ""
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	return scope.subject
}
