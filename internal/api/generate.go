package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

type generateRequest struct {
	Question string `json:"question"`
}

type validateRequest struct {
	SQL string `json:"sql"`
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryAuthor); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if s.translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATION_NOT_CONFIGURED", "sql generation is not configured", false, nil)
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid generate request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	catalog, err := s.catalog(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "failed to load schema catalog", true, map[string]any{"details": err.Error()})
		return
	}

	ctx, cancel := s.llmContext(r.Context())
	defer cancel()
	generated, err := s.translator.Translate(ctx, nl2sql.Request{
		Question: req.Question,
		Catalog:  catalog,
		Examples: s.deps.Examples,
	})
	if err != nil {
		failed := generationFailure(err)
		writeError(r.Context(), w, failed.status, failed.Code, failed.Message, failed.Retryable, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, generated)
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryAuthor); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid validate request body", false, map[string]any{"details": err.Error()})
		return
	}

	result := validate.Result{Valid: false, Message: validate.MessageNotInitialized}
	if s.validator != nil {
		ctx, cancel := s.engineContext(r.Context())
		defer cancel()
		result = s.validator.Validate(ctx, req.SQL)
	}
	writeJSON(w, http.StatusOK, result)
}

type failure struct {
	status    int
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func generationFailure(err error) failure {
	var genErr *nl2sql.GenerationError
	switch {
	case errors.Is(err, nl2sql.ErrEmptyResult):
		return failure{status: http.StatusUnprocessableEntity, Code: "EMPTY_RESULT", Message: "model returned no sql", Retryable: false}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{status: http.StatusGatewayTimeout, Code: "GENERATION_TIMEOUT", Message: "sql generation timed out", Retryable: true}
	case errors.As(err, &genErr):
		return failure{status: http.StatusBadGateway, Code: "GENERATION_FAILED", Message: "failed to generate sql", Retryable: genErr.Retryable()}
	default:
		return failure{status: http.StatusBadGateway, Code: "GENERATION_FAILED", Message: "failed to generate sql", Retryable: false}
	}
}
