package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/llm"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/pipeline"
	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

func TestAskRunsGenerateValidateExecute(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SQLSCRIBE_ENGINE_MAX_ROWS": "20"})
	engine := &fakeEngine{result: query.Result{Columns: []string{"n"}, Rows: [][]any{{int64(3)}}}}
	h := NewHandler(cfg, Dependencies{
		Catalog:    staticCache(t, marketingTable()),
		Translator: &fakeTranslator{result: nl2sql.GeneratedQuery{ID: "gen-1", SQL: "SELECT COUNT(*) AS n FROM marketing_campaigns"}},
		Validator:  validate.New(engine, nil),
		Engine:     engine,
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"How many campaigns?","execute":true}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["state"] != string(pipeline.StateExecuted) {
		t.Fatalf("state = %v, body=%#v", body["state"], body)
	}
	if body["error"] != nil {
		t.Fatalf("error = %#v", body["error"])
	}
	transitions := body["transitions"].([]any)
	if len(transitions) != 6 {
		t.Fatalf("transitions = %d, want 6", len(transitions))
	}
	result := body["result"].(map[string]any)
	if len(result["rows"].([]any)) != 1 {
		t.Fatalf("result = %#v", result)
	}
	if len(engine.dryRuns) != 1 || len(engine.requests) != 1 || engine.requests[0].RowLimit != 20 {
		t.Fatalf("dry runs = %d, requests = %#v", len(engine.dryRuns), engine.requests)
	}
}

func TestAskWithoutExecuteStopsAtValidated(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	engine := &fakeEngine{}
	h := NewHandler(cfg, Dependencies{
		Translator: &fakeTranslator{result: nl2sql.GeneratedQuery{SQL: "SELECT 1"}},
		Validator:  validate.New(engine, nil),
		Engine:     engine,
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`)))
	body := decodeBody(t, rr)
	if body["state"] != string(pipeline.StateValidated) {
		t.Fatalf("state = %v", body["state"])
	}
	if body["result"] != nil || len(engine.requests) != 0 {
		t.Fatalf("unexpected execution: %#v", body["result"])
	}
	validation := body["validation"].(map[string]any)
	if validation["valid"] != true || validation["message"] != validate.MessageValid {
		t.Fatalf("validation = %#v", validation)
	}
}

func TestAskRejectedQueryIsNotExecuted(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	engine := &fakeEngine{dryRunErr: errors.New("Parser Error: syntax error at or near \"SELEC\"")}
	h := NewHandler(cfg, Dependencies{
		Translator: &fakeTranslator{result: nl2sql.GeneratedQuery{SQL: "SELEC 1"}},
		Validator:  validate.New(engine, nil),
		Engine:     engine,
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q","execute":true}`)))
	body := decodeBody(t, rr)
	if body["state"] != string(pipeline.StateRejected) {
		t.Fatalf("state = %v", body["state"])
	}
	if len(engine.requests) != 0 {
		t.Fatal("rejected query must not execute")
	}
	generated := body["query"].(map[string]any)
	if generated["sql"] != "SELEC 1" {
		t.Fatalf("query = %#v", generated)
	}
}

func TestAskGenerationFailureReportsFailedRun(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	backendErr := &llm.BackendError{Provider: "openai", StatusCode: 503, Retryable: true, Err: errors.New("overloaded")}
	h := NewHandler(cfg, Dependencies{
		Translator: &fakeTranslator{err: &nl2sql.GenerationError{Kind: nl2sql.KindBackend, Err: backendErr}},
		Engine:     &fakeEngine{},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["state"] != string(pipeline.StateFailed) {
		t.Fatalf("state = %v", body["state"])
	}
	runErr := body["error"].(map[string]any)
	if runErr["code"] != "GENERATION_FAILED" || runErr["retryable"] != true {
		t.Fatalf("error = %#v", runErr)
	}
	if !strings.Contains(runErr["message"].(string), "overloaded") {
		t.Fatalf("message = %v", runErr["message"])
	}
	if body["query"] != nil {
		t.Fatalf("query = %#v", body["query"])
	}
}

func TestAskWithoutValidatorIsRejected(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	h := NewHandler(cfg, Dependencies{
		Translator: &fakeTranslator{result: nl2sql.GeneratedQuery{SQL: "SELECT 1"}},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q","execute":true}`)))
	body := decodeBody(t, rr)
	if body["state"] != string(pipeline.StateRejected) {
		t.Fatalf("state = %v", body["state"])
	}
	if body["validation"].(map[string]any)["message"] != validate.MessageNotInitialized {
		t.Fatalf("validation = %#v", body["validation"])
	}
}

func TestAskDoesNotExecuteWrites(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	engine := &fakeEngine{}
	h := NewHandler(cfg, Dependencies{
		Translator: &fakeTranslator{result: nl2sql.GeneratedQuery{SQL: "DELETE FROM marketing_campaigns"}},
		Validator:  validate.New(engine, nil),
		Engine:     engine,
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q","execute":true}`)))
	body := decodeBody(t, rr)
	if body["state"] != string(pipeline.StateValidated) {
		t.Fatalf("state = %v", body["state"])
	}
	if body["error"].(map[string]any)["code"] != "SQL_NOT_ALLOWED" || len(engine.requests) != 0 {
		t.Fatalf("body = %#v", body)
	}
}

func TestAskExecuteRequiresRunnerRole(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SQLSCRIBE_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("k1:analyst:query_author")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	translator := &fakeTranslator{result: nl2sql.GeneratedQuery{SQL: "SELECT 1"}}
	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Translator:     translator,
		Engine:         &fakeEngine{},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q","execute":true}`))
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(translator.requests) != 0 {
		t.Fatal("translator should not run before role check")
	}
}
