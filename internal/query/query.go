package query

import (
	"context"
	"errors"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/schema"
)

const (
	DialectDuckDB   = "DuckDB"
	DialectPostgres = "PostgreSQL"
	DialectBigQuery = "BigQuery"
)

var (
	ErrEmptySQL      = errors.New("sql is required")
	ErrTableNotFound = errors.New("table not found")
)

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Engine is a tabular query engine the pipeline can introspect, dry-run and
// execute against. Implementations are safe for concurrent use.
type Engine interface {
	Dialect() string
	ListTables(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, table string) (schema.TableSchema, error)
	DryRun(ctx context.Context, sqlText string) error
	Execute(ctx context.Context, request Request) (Result, error)
	Ping(ctx context.Context) error
	Close() error
}
