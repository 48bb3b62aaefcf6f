package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sqlscribe/sqlscribe/internal/api"
	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/demo/marketing"
	"github.com/sqlscribe/sqlscribe/internal/llm"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/query"
	bigqueryengine "github.com/sqlscribe/sqlscribe/internal/query/bigquery"
	duckdbengine "github.com/sqlscribe/sqlscribe/internal/query/duckdb"
	postgresengine "github.com/sqlscribe/sqlscribe/internal/query/postgres"
	"github.com/sqlscribe/sqlscribe/internal/schema"
	s3store "github.com/sqlscribe/sqlscribe/internal/storage/s3"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("sqlscribe-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	engine, err := openEngine(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open query engine", slog.String("engine", cfg.Engine.Kind), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	dialect := strings.TrimSpace(cfg.Engine.Dialect)
	if dialect == "" {
		dialect = engine.Dialect()
	}

	completer, err := llm.New(context.Background(), llm.Config{
		Provider:        cfg.LLM.Provider,
		ProjectID:       cfg.LLM.ProjectID,
		Region:          cfg.LLM.Region,
		CredentialsFile: cfg.LLM.CredentialsFile,
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxTokens:       cfg.LLM.MaxTokens,
	})
	if err != nil {
		logger.Error("failed to initialize completion client", slog.String("provider", cfg.LLM.Provider), slog.Any("error", err))
		os.Exit(1)
	}

	descriptions, err := loadDescriptions(cfg.Generation.CatalogFile)
	if err != nil {
		logger.Error("failed to load catalog descriptions", slog.Any("error", err))
		os.Exit(1)
	}
	examples, err := loadExamples(cfg.Generation.ExamplesFile, dialect)
	if err != nil {
		logger.Error("failed to load example queries", slog.Any("error", err))
		os.Exit(1)
	}
	questions, err := marketing.SampleQuestions()
	if err != nil {
		logger.Error("failed to load sample questions", slog.Any("error", err))
		os.Exit(1)
	}

	generator := nl2sql.NewGenerator(completer, nl2sql.PromptBuilder{Dialect: dialect, RowCap: cfg.Generation.RowCap}, logger)
	readiness := []api.ReadinessCheck{api.CheckEngine(engine)}
	if cfg.Engine.Kind == config.EngineDuckDB {
		readiness = append(readiness, api.CheckObjectStoreConfig(cfg))
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
		Catalog:           schema.NewCache(api.CatalogLoader(engine, descriptions, logger)),
		Examples:          examples,
		SampleQuestions:   questions,
		Translator:        generator,
		Validator:         validate.New(engine, logger),
		Engine:            engine,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("engine", cfg.Engine.Kind),
			slog.String("dialect", dialect),
			slog.String("provider", completer.Provider()),
			slog.String("model", completer.Model()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (query.Engine, error) {
	switch cfg.Engine.Kind {
	case config.EngineDuckDB:
		objectStore, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		engine, err := duckdbengine.Open(ctx, duckdbengine.Config{
			Path:          cfg.Engine.DuckDB.Path,
			Store:         objectStore,
			DatasetPrefix: cfg.Engine.DuckDB.DatasetPrefix,
			WorkDir:       cfg.Engine.DuckDB.WorkDir,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Engine.DuckDB.SyncOnStart {
			tables, err := engine.SyncDatasets(ctx)
			if err != nil {
				_ = engine.Close()
				return nil, fmt.Errorf("sync datasets: %w", err)
			}
			logger.Info("synced datasets", slog.Int("tables", len(tables)), slog.Any("names", tables))
		}
		return engine, nil
	case config.EnginePostgres:
		engine, err := postgresengine.Open(ctx, postgresengine.DBConfig{
			DSN:              cfg.Engine.Postgres.DSN,
			ApplicationName:  cfg.Service.Name,
			StatementTimeout: cfg.Engine.Postgres.StatementTimeout,
			MaxOpenConns:     cfg.Engine.Postgres.MaxOpenConns,
			MaxIdleConns:     cfg.Engine.Postgres.MaxIdleConns,
			ConnMaxIdleTime:  cfg.Engine.Postgres.ConnMaxIdleTime,
			ConnMaxLifetime:  cfg.Engine.Postgres.ConnMaxLifetime,
		}, cfg.Engine.Postgres.Schema)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case config.EngineBigQuery:
		engine, err := bigqueryengine.Open(ctx, bigqueryengine.Config{
			ProjectID:       cfg.Engine.BigQuery.ProjectID,
			DatasetID:       cfg.Engine.BigQuery.DatasetID,
			Location:        cfg.Engine.BigQuery.Location,
			CredentialsFile: cfg.Engine.BigQuery.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", cfg.Engine.Kind)
	}
}

// loadDescriptions reads table descriptions from path, falling back to the
// bundled marketing catalog.
func loadDescriptions(path string) (schema.Catalog, error) {
	if strings.TrimSpace(path) != "" {
		return schema.LoadFile(path)
	}
	return marketing.Catalog()
}

func loadExamples(path, dialect string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return nl2sql.LoadExamplesFile(path)
	}
	return marketing.Examples(dialect), nil
}
