package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/demo/marketing"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/schema"
)

type schemaResponse struct {
	Tables     []schema.TableSchema `json:"tables"`
	TableCount int                  `json:"table_count"`
	Formatted  string               `json:"formatted"`
	LoadedAt   time.Time            `json:"loaded_at"`
}

type examplesResponse struct {
	Dialect         string                       `json:"dialect"`
	Examples        []string                     `json:"examples"`
	Block           string                       `json:"block"`
	SampleQuestions []marketing.QuestionCategory `json:"sample_questions"`
}

// CatalogLoader loads the catalog from source and fills missing table
// descriptions from descriptions.
func CatalogLoader(source schema.TableSource, descriptions schema.Catalog, logger *slog.Logger) schema.LoadFunc {
	return func(ctx context.Context) (schema.Catalog, error) {
		catalog, err := schema.Load(ctx, source, logger)
		if err != nil {
			observability.ObserveCatalogRefresh(0, err)
			return schema.Catalog{}, err
		}
		catalog = catalog.WithDescriptions(descriptions)
		observability.ObserveCatalogRefresh(catalog.Len(), nil)
		return catalog, nil
	}
}

func (s *server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryAuthor); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if s.deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema catalog is not configured", false, nil)
		return
	}

	ctx, cancel := s.engineContext(r.Context())
	defer cancel()
	snapshot, err := s.deps.Catalog.Get(ctx)
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "failed to load schema catalog", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newSchemaResponse(snapshot))
}

func (s *server) handleRefreshSchema(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleSchemaAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if s.deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema catalog is not configured", false, nil)
		return
	}

	ctx, cancel := s.engineContext(r.Context())
	defer cancel()
	snapshot, err := s.deps.Catalog.Refresh(ctx)
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_REFRESH_FAILED", "failed to refresh schema catalog", true, map[string]any{"details": err.Error()})
		return
	}
	if s.deps.Logger != nil {
		s.deps.Logger.InfoContext(r.Context(), "schema catalog refreshed",
			slog.String("subject", subjectFromRequest(r)),
			slog.Int("tables", snapshot.Catalog.Len()),
		)
	}
	writeJSON(w, http.StatusOK, newSchemaResponse(snapshot))
}

func (s *server) handleExamples(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryAuthor); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	examples, err := nl2sql.ParseExamples(strings.NewReader(s.deps.Examples))
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXAMPLES_UNAVAILABLE", err.Error(), false, nil)
		return
	}
	if examples == nil {
		examples = []string{}
	}
	questions := s.deps.SampleQuestions
	if questions == nil {
		questions = []marketing.QuestionCategory{}
	}
	writeJSON(w, http.StatusOK, examplesResponse{
		Dialect:         s.dialect(),
		Examples:        examples,
		Block:           s.deps.Examples,
		SampleQuestions: questions,
	})
}

// catalog returns the current snapshot's catalog, or an empty catalog when no
// cache is configured.
func (s *server) catalog(ctx context.Context) (schema.Catalog, error) {
	if s.deps.Catalog == nil {
		return schema.Catalog{}, nil
	}
	ctx, cancel := s.engineContext(ctx)
	defer cancel()
	snapshot, err := s.deps.Catalog.Get(ctx)
	if err != nil {
		return schema.Catalog{}, err
	}
	return snapshot.Catalog, nil
}

func (s *server) dialect() string {
	if s.cfg.Engine.Dialect != "" {
		return s.cfg.Engine.Dialect
	}
	if s.deps.Engine != nil {
		return s.deps.Engine.Dialect()
	}
	return ""
}

func (s *server) engineContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withOptionalTimeout(ctx, s.cfg.Engine.Timeout)
}

func (s *server) llmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withOptionalTimeout(ctx, s.cfg.LLM.Timeout)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func newSchemaResponse(snapshot schema.Snapshot) schemaResponse {
	tables := snapshot.Catalog.Tables()
	return schemaResponse{
		Tables:     tables,
		TableCount: len(tables),
		Formatted:  schema.Format(snapshot.Catalog),
		LoadedAt:   snapshot.LoadedAt,
	}
}
