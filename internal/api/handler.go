package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/demo/marketing"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/pipeline"
	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/schema"
)

type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Catalog           *schema.Cache
	Examples          string
	SampleQuestions   []marketing.QuestionCategory
	Translator        nl2sql.Translator
	Validator         pipeline.Validator
	Engine            query.Engine
}

type server struct {
	cfg          config.Config
	deps         Dependencies
	translator   nl2sql.Translator
	validator    pipeline.Validator
	executor     pipeline.Executor
	orchestrator *pipeline.Orchestrator
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	s := &server{cfg: cfg, deps: deps}
	if deps.Translator != nil {
		s.translator = observedTranslator{next: deps.Translator, provider: cfg.LLM.Provider}
	}
	if deps.Validator != nil {
		s.validator = observedValidator{next: deps.Validator}
	}
	if deps.Engine != nil {
		s.executor = observedExecutor{next: deps.Engine}
	}
	s.orchestrator = pipeline.NewOrchestrator(s.translator, s.validator, s.executor, deps.Logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/schema", s.handleGetSchema)
	protected.HandleFunc("POST /v1/schema/refresh", s.handleRefreshSchema)
	protected.HandleFunc("GET /v1/examples", s.handleExamples)
	protected.HandleFunc("POST /v1/query/generate", s.handleGenerate)
	protected.HandleFunc("POST /v1/query/validate", s.handleValidate)
	protected.HandleFunc("POST /v1/query/execute", s.handleExecute)
	protected.HandleFunc("POST /v1/ask", s.handleAsk)

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/schema/refresh", protectedHandler)
	mux.Handle("GET /v1/examples", protectedHandler)
	mux.Handle("POST /v1/query/generate", protectedHandler)
	mux.Handle("POST /v1/query/validate", protectedHandler)
	mux.Handle("POST /v1/query/execute", protectedHandler)
	mux.Handle("POST /v1/ask", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		middlewares = append(middlewares, corsMiddleware(cfg.CORS.AllowedOrigins))
	}
	return chain(mux, middlewares...)
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         600,
	}).Handler
}

// CheckEngine reports the warehouse as ready once it answers a ping.
func CheckEngine(engine query.Engine) ReadinessCheck {
	return func(ctx context.Context) error {
		if engine == nil {
			return errors.New("query engine is not configured")
		}
		return engine.Ping(ctx)
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
