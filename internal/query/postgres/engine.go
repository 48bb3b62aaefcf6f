package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/schema"
)

const DefaultSchema = "public"

// Engine queries an existing PostgreSQL database through database/sql.
// Introspection is limited to one schema.
type Engine struct {
	db     *sql.DB
	schema string
}

func Open(ctx context.Context, cfg DBConfig, schemaName string) (*Engine, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewEngine(db, schemaName), nil
}

func NewEngine(db *sql.DB, schemaName string) *Engine {
	schemaName = strings.TrimSpace(schemaName)
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return &Engine{db: db, schema: schemaName}
}

func (e *Engine) Dialect() string {
	return query.DialectPostgres
}

func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
ORDER BY table_name`, e.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

func (e *Engine) GetSchema(ctx context.Context, table string) (schema.TableSchema, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return schema.TableSchema{}, fmt.Errorf("table name is required")
	}

	var description sql.NullString
	err := e.db.QueryRowContext(ctx, `
SELECT obj_description(c.oid, 'pg_class')
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2`, e.schema, table).Scan(&description)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.TableSchema{}, fmt.Errorf("describe table %q: %w", table, query.ErrTableNotFound)
	}
	if err != nil {
		return schema.TableSchema{}, fmt.Errorf("describe table %q: %w", table, err)
	}

	rows, err := e.db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, e.schema, table)
	if err != nil {
		return schema.TableSchema{}, fmt.Errorf("list columns for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]schema.Column, 0)
	for rows.Next() {
		var column schema.Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return schema.TableSchema{}, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return schema.TableSchema{}, fmt.Errorf("iterate columns: %w", err)
	}

	return schema.TableSchema{
		Name:        table,
		Description: strings.TrimSpace(description.String),
		Columns:     columns,
	}, nil
}

// DryRun asks the planner for a plan inside a read-only transaction that is
// always rolled back.
func (e *Engine) DryRun(ctx context.Context, sqlText string) error {
	sqlText, err := query.SingleStatement(sqlText)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin dry-run transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, "EXPLAIN "+sqlText)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var planLine string
		if err := rows.Scan(&planLine); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Execute runs the statement in a read-only transaction.
func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText, err := query.SingleStatement(request.SQL)
	if err != nil {
		return query.Result{}, err
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return query.Result{}, fmt.Errorf("begin query transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query.WrapRowLimit(sqlText, request.RowLimit))
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, query.NormalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *Engine) Close() error {
	return e.db.Close()
}
