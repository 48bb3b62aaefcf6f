package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompleteSendsSingleUserMessage(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"SELECT 1"}}]}`))
	}))
	defer srv.Close()

	completer, err := NewOpenAI(Config{APIKey: "secret", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	text, err := completer.Complete(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "SELECT 1" {
		t.Fatalf("Complete() = %q", text)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if got.Model != DefaultOpenAIModel {
		t.Fatalf("model = %q", got.Model)
	}
	if got.Temperature < 0.099 || got.Temperature > 0.101 {
		t.Fatalf("temperature = %f", got.Temperature)
	}
	if got.MaxTokens != DefaultMaxTokens {
		t.Fatalf("max_tokens = %d", got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "prompt text" {
		t.Fatalf("messages = %#v", got.Messages)
	}
}

func TestOpenAICompleteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusBadGateway, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, retryable: false},
		{name: "unauthorized", status: http.StatusUnauthorized, retryable: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
			}))
			defer srv.Close()

			completer, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
			if err != nil {
				t.Fatalf("NewOpenAI() error = %v", err)
			}
			_, err = completer.Complete(context.Background(), "p")
			var backendErr *BackendError
			if !errors.As(err, &backendErr) {
				t.Fatalf("Complete() error = %v, want *BackendError", err)
			}
			if backendErr.StatusCode != tc.status {
				t.Fatalf("StatusCode = %d, want %d", backendErr.StatusCode, tc.status)
			}
			if backendErr.Retryable != tc.retryable || IsRetryable(err) != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", backendErr.Retryable, tc.retryable)
			}
		})
	}
}

func TestOpenAICompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	completer, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	_, err = completer.Complete(context.Background(), "p")
	var backendErr *BackendError
	if !errors.As(err, &backendErr) || backendErr.Retryable {
		t.Fatalf("Complete() error = %v, want non-retryable *BackendError", err)
	}
}

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAI(Config{})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewOpenAI() error = %v, want *ConfigError", err)
	}
	if cfgErr.Field != "api_key" {
		t.Fatalf("Field = %q", cfgErr.Field)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "huggingface", APIKey: "k"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New() error = %v, want *ConfigError", err)
	}
}

func TestNewSelectsOpenAI(t *testing.T) {
	completer, err := New(context.Background(), Config{Provider: " OpenAI ", APIKey: "k", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if completer.Provider() != ProviderOpenAI || completer.Model() != "gpt-4o-mini" {
		t.Fatalf("completer = %s/%s", completer.Provider(), completer.Model())
	}
}
