package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/query"
)

type executeRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type executeResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryRunner); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if s.executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}

	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid execute request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	if !query.IsReadOnly(req.SQL) {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only SELECT/WITH queries are allowed", false, nil)
		return
	}

	limit := s.rowLimit(req.RowLimit)
	ctx, cancel := s.engineContext(r.Context())
	defer cancel()
	result, err := s.executor.Execute(ctx, query.Request{SQL: req.SQL, RowLimit: limit})
	if err != nil {
		failed := executionFailure(err)
		writeError(r.Context(), w, failed.status, failed.Code, failed.Message, failed.Retryable, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newExecuteResponse(result, limit))
}

// rowLimit caps requested at the configured maximum; zero or negative asks
// for the maximum.
func (s *server) rowLimit(requested int) int {
	maxRows := s.cfg.Engine.MaxRows
	if maxRows <= 0 {
		return requested
	}
	if requested <= 0 || requested > maxRows {
		return maxRows
	}
	return requested
}

func executionFailure(err error) failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure{status: http.StatusGatewayTimeout, Code: "QUERY_TIMEOUT", Message: "query execution timed out", Retryable: true}
	}
	return failure{status: http.StatusBadRequest, Code: "QUERY_EXECUTION_FAILED", Message: "query execution failed", Retryable: false}
}

func newExecuteResponse(result query.Result, limit int) executeResponse {
	columns := result.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return executeResponse{
		Columns: columns,
		Rows:    rows,
		Stats: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
			"row_count":   len(rows),
			"row_limit":   limit,
		},
	}
}
