package api

import (
	"net/http"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/pipeline"
	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

type askRequest struct {
	Question string `json:"question"`
	Execute  bool   `json:"execute"`
	RowLimit int    `json:"row_limit"`
}

type runResponse struct {
	ID          string                 `json:"id"`
	Question    string                 `json:"question"`
	State       pipeline.State         `json:"state"`
	Query       *nl2sql.GeneratedQuery `json:"query,omitempty"`
	Validation  *validate.Result       `json:"validation,omitempty"`
	Result      *executeResponse       `json:"result,omitempty"`
	Error       *failure               `json:"error,omitempty"`
	Transitions []pipeline.Transition  `json:"transitions"`
}

// handleAsk drives one run through generate, validate and, when requested,
// execute. A run that stops early is still a 200 response; its state and
// error say where and why.
func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryAuthor); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if req.Execute {
		if err := requireRole(r, auth.RoleQueryRunner); err != nil {
			writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
			return
		}
	}

	catalog, err := s.catalog(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "failed to load schema catalog", true, map[string]any{"details": err.Error()})
		return
	}

	run := pipeline.NewRun(req.Question)
	limit := s.rowLimit(req.RowLimit)

	genCtx, cancelGen := s.llmContext(r.Context())
	err = s.orchestrator.Generate(genCtx, run, catalog, s.deps.Examples)
	cancelGen()
	if err != nil {
		failed := generationFailure(err)
		writeJSON(w, http.StatusOK, newRunResponse(run, limit, &failed))
		return
	}

	engineCtx, cancel := s.engineContext(r.Context())
	defer cancel()
	validation, err := s.orchestrator.Validate(engineCtx, run)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "PIPELINE_ERROR", err.Error(), false, nil)
		return
	}
	if !validation.Valid || !req.Execute {
		writeJSON(w, http.StatusOK, newRunResponse(run, limit, nil))
		return
	}
	if !query.IsReadOnly(run.Query.SQL) {
		writeJSON(w, http.StatusOK, newRunResponse(run, limit, &failure{
			status:  http.StatusBadRequest,
			Code:    "SQL_NOT_ALLOWED",
			Message: "only read-only SELECT/WITH queries are allowed",
		}))
		return
	}

	if _, err := s.orchestrator.Execute(engineCtx, run, limit); err != nil {
		failed := executionFailure(err)
		writeJSON(w, http.StatusOK, newRunResponse(run, limit, &failed))
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run, limit, nil))
}

func newRunResponse(run *pipeline.Run, limit int, runErr *failure) runResponse {
	response := runResponse{
		ID:          run.ID,
		Question:    run.Question,
		State:       run.State,
		Validation:  run.Validation,
		Error:       runErr,
		Transitions: run.Transitions,
	}
	if run.Query.SQL != "" {
		generated := run.Query
		response.Query = &generated
	}
	if run.Result != nil {
		result := newExecuteResponse(*run.Result, limit)
		response.Result = &result
	}
	if response.Error != nil && run.Err != nil {
		response.Error.Message = response.Error.Message + ": " + run.ErrorMessage()
	}
	if response.Transitions == nil {
		response.Transitions = []pipeline.Transition{}
	}
	return response
}
