package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("sqlscribe-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Engine.Kind != EngineDuckDB {
		t.Fatalf("Engine.Kind = %q", cfg.Engine.Kind)
	}
	if cfg.Engine.MaxRows != 1000 || cfg.Generation.RowCap != 1000 {
		t.Fatalf("MaxRows/RowCap = %d/%d", cfg.Engine.MaxRows, cfg.Generation.RowCap)
	}
	if cfg.Engine.DuckDB.DatasetPrefix != "datasets" || !cfg.Engine.DuckDB.SyncOnStart {
		t.Fatalf("Engine.DuckDB = %#v", cfg.Engine.DuckDB)
	}
	if cfg.Engine.Postgres.Schema != "public" || cfg.Engine.Postgres.MaxOpenConns != 10 {
		t.Fatalf("Engine.Postgres = %#v", cfg.Engine.Postgres)
	}
	if cfg.LLM.Provider != "vertex" || cfg.LLM.Region != "us-central1" {
		t.Fatalf("LLM provider/region = %q/%q", cfg.LLM.Provider, cfg.LLM.Region)
	}
	if cfg.LLM.Temperature != 0.1 || cfg.LLM.MaxTokens != 1024 {
		t.Fatalf("LLM temperature/max tokens = %v/%d", cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	}
	if cfg.ObjectStore.Endpoint != "localhost:9000" || cfg.ObjectStore.Bucket != "sqlscribe" {
		t.Fatalf("ObjectStore = %#v", cfg.ObjectStore)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"*"}) {
		t.Fatalf("CORS.AllowedOrigins = %#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"SQLSCRIBE_PROFILE": "prod"})
	cfg, err := Load("sqlscribe-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Fatalf("CORS.AllowedOrigins = %#v, want none in prod", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"SQLSCRIBE_PROFILE":                    "test",
		"SQLSCRIBE_HTTP_ADDR":                  ":9999",
		"SQLSCRIBE_HTTP_READ_TIMEOUT":          "2s",
		"SQLSCRIBE_HTTP_WRITE_TIMEOUT":         "3s",
		"SQLSCRIBE_LOG_LEVEL":                  "error",
		"SQLSCRIBE_AUTH_REQUIRED":              "true",
		"SQLSCRIBE_AUTH_STATIC_KEYS":           "k1:analyst:query_author",
		"SQLSCRIBE_SERVICE_NAME":               "sqlscribe-custom",
		"SQLSCRIBE_ENGINE":                     "Postgres",
		"SQLSCRIBE_ENGINE_DIALECT":             "PostgreSQL 16",
		"SQLSCRIBE_ENGINE_TIMEOUT":             "12s",
		"SQLSCRIBE_ENGINE_MAX_ROWS":            "250",
		"SQLSCRIBE_DUCKDB_PATH":                "/var/lib/sqlscribe/db.duckdb",
		"SQLSCRIBE_DUCKDB_SYNC_ON_START":       "false",
		"SQLSCRIBE_POSTGRES_DSN":               "postgres://example",
		"SQLSCRIBE_POSTGRES_SCHEMA":            "marketing",
		"SQLSCRIBE_POSTGRES_MAX_OPEN_CONNS":    "42",
		"SQLSCRIBE_POSTGRES_MAX_IDLE_CONNS":    "17",
		"SQLSCRIBE_POSTGRES_CONN_MAX_LIFETIME": "1h",
		"SQLSCRIBE_POSTGRES_STATEMENT_TIMEOUT": "40s",
		"SQLSCRIBE_BIGQUERY_LOCATION":          "EU",
		"SQLSCRIBE_OBJECTSTORE_ENDPOINT":       "s3.example.com",
		"SQLSCRIBE_OBJECTSTORE_BUCKET":         "sqlscribe-prod",
		"SQLSCRIBE_OBJECTSTORE_USE_SSL":        "true",
		"SQLSCRIBE_OBJECTSTORE_PREFIX":         "analytics",
		"SQLSCRIBE_LLM_PROVIDER":               "OpenAI",
		"SQLSCRIBE_LLM_API_KEY":                "secret-key",
		"SQLSCRIBE_LLM_BASE_URL":               "https://llm.example.com/v1",
		"SQLSCRIBE_LLM_MODEL":                  "gpt-4o-mini",
		"SQLSCRIBE_LLM_TEMPERATURE":            "0.3",
		"SQLSCRIBE_LLM_MAX_TOKENS":             "512",
		"SQLSCRIBE_LLM_TIMEOUT":                "21s",
		"SQLSCRIBE_CATALOG_FILE":               "/etc/sqlscribe/catalog.yaml",
		"SQLSCRIBE_EXAMPLES_FILE":              "/etc/sqlscribe/examples.sql",
		"SQLSCRIBE_ROW_CAP":                    "500",
		"SQLSCRIBE_CORS_ALLOWED_ORIGINS":       "https://a.example.com, https://b.example.com,",
	})
	cfg, err := Load("sqlscribe-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "sqlscribe-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second || cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP timeouts = %s/%s", cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required || cfg.Auth.StaticKeys != "k1:analyst:query_author" {
		t.Fatalf("Auth = %#v", cfg.Auth)
	}
	if cfg.Engine.Kind != EnginePostgres || cfg.Engine.Dialect != "PostgreSQL 16" {
		t.Fatalf("Engine kind/dialect = %q/%q", cfg.Engine.Kind, cfg.Engine.Dialect)
	}
	if cfg.Engine.Timeout != 12*time.Second || cfg.Engine.MaxRows != 250 {
		t.Fatalf("Engine timeout/max rows = %s/%d", cfg.Engine.Timeout, cfg.Engine.MaxRows)
	}
	if cfg.Engine.DuckDB.Path != "/var/lib/sqlscribe/db.duckdb" || cfg.Engine.DuckDB.SyncOnStart {
		t.Fatalf("Engine.DuckDB = %#v", cfg.Engine.DuckDB)
	}
	if cfg.Engine.Postgres.DSN != "postgres://example" || cfg.Engine.Postgres.Schema != "marketing" {
		t.Fatalf("Engine.Postgres = %#v", cfg.Engine.Postgres)
	}
	if cfg.Engine.Postgres.MaxOpenConns != 42 || cfg.Engine.Postgres.MaxIdleConns != 17 || cfg.Engine.Postgres.ConnMaxLifetime != time.Hour || cfg.Engine.Postgres.StatementTimeout != 40*time.Second {
		t.Fatalf("Engine.Postgres pool = %#v", cfg.Engine.Postgres)
	}
	if cfg.Engine.BigQuery.Location != "EU" {
		t.Fatalf("Engine.BigQuery.Location = %q", cfg.Engine.BigQuery.Location)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" || cfg.ObjectStore.Bucket != "sqlscribe-prod" || !cfg.ObjectStore.UseSSL {
		t.Fatalf("ObjectStore = %#v", cfg.ObjectStore)
	}
	if cfg.ObjectStore.Prefix != "analytics" {
		t.Fatalf("ObjectStore.Prefix = %q", cfg.ObjectStore.Prefix)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "secret-key" || cfg.LLM.BaseURL != "https://llm.example.com/v1" {
		t.Fatalf("LLM = %#v", cfg.LLM)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Temperature != 0.3 || cfg.LLM.MaxTokens != 512 || cfg.LLM.Timeout != 21*time.Second {
		t.Fatalf("LLM tuning = %#v", cfg.LLM)
	}
	if cfg.Generation.CatalogFile != "/etc/sqlscribe/catalog.yaml" || cfg.Generation.ExamplesFile != "/etc/sqlscribe/examples.sql" || cfg.Generation.RowCap != 500 {
		t.Fatalf("Generation = %#v", cfg.Generation)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.example.com", "https://b.example.com"}) {
		t.Fatalf("CORS.AllowedOrigins = %#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadHonorsPlainCloudVariables(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"GOOGLE_CLOUD_PROJECT":           "acme-analytics",
		"VERTEX_AI_LOCATION":             "europe-west4",
		"GOOGLE_APPLICATION_CREDENTIALS": "/secrets/sa.json",
		"BIGQUERY_DATASET":               "marketing",
		"OPENAI_API_KEY":                 "sk-plain",
	})
	cfg, err := Load("sqlscribe-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.ProjectID != "acme-analytics" || cfg.Engine.BigQuery.ProjectID != "acme-analytics" {
		t.Fatalf("project ids = %q/%q", cfg.LLM.ProjectID, cfg.Engine.BigQuery.ProjectID)
	}
	if cfg.LLM.Region != "europe-west4" {
		t.Fatalf("LLM.Region = %q", cfg.LLM.Region)
	}
	if cfg.LLM.CredentialsFile != "/secrets/sa.json" || cfg.Engine.BigQuery.CredentialsFile != "/secrets/sa.json" {
		t.Fatalf("credentials files = %q/%q", cfg.LLM.CredentialsFile, cfg.Engine.BigQuery.CredentialsFile)
	}
	if cfg.Engine.BigQuery.DatasetID != "marketing" || cfg.LLM.APIKey != "sk-plain" {
		t.Fatalf("dataset/api key = %q/%q", cfg.Engine.BigQuery.DatasetID, cfg.LLM.APIKey)
	}
}

func TestPrefixedVariablesOverridePlainOnes(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"GOOGLE_CLOUD_PROJECT":       "plain-project",
		"SQLSCRIBE_LLM_PROJECT":      "llm-project",
		"SQLSCRIBE_BIGQUERY_PROJECT": "bq-project",
		"OPENAI_API_KEY":             "sk-plain",
		"SQLSCRIBE_LLM_API_KEY":      "sk-prefixed",
	})
	cfg, err := Load("sqlscribe-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.ProjectID != "llm-project" || cfg.Engine.BigQuery.ProjectID != "bq-project" {
		t.Fatalf("project ids = %q/%q", cfg.LLM.ProjectID, cfg.Engine.BigQuery.ProjectID)
	}
	if cfg.LLM.APIKey != "sk-prefixed" {
		t.Fatalf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"SQLSCRIBE_PROFILE": "oops"},
		{"SQLSCRIBE_HTTP_READ_TIMEOUT": "NaN"},
		{"SQLSCRIBE_POSTGRES_MAX_OPEN_CONNS": "oops"},
		{"SQLSCRIBE_ENGINE": "sqlite"},
		{"SQLSCRIBE_ENGINE_MAX_ROWS": "0"},
		{"SQLSCRIBE_ROW_CAP": "-1"},
		{"SQLSCRIBE_LLM_PROVIDER": "huggingface"},
		{"SQLSCRIBE_LLM_TEMPERATURE": "bad"},
		{"SQLSCRIBE_AUTH_REQUIRED": "not-bool"},
		{"SQLSCRIBE_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("sqlscribe-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
