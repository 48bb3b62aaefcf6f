package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/schema"
	"github.com/sqlscribe/sqlscribe/internal/storage"
)

const mainSchema = "main"

type Config struct {
	// Path of the database file; empty opens an in-memory database.
	Path          string
	Store         storage.ObjectStore
	DatasetPrefix string
	// WorkDir receives downloaded parquet files; empty uses a temp dir
	// removed on Close.
	WorkDir string
}

// Engine runs queries on an embedded DuckDB database. Datasets stored as
// parquet in the object store are exposed as views by SyncDatasets.
type Engine struct {
	db          *sql.DB
	store       storage.ObjectStore
	prefix      string
	workDir     string
	ownsWorkDir bool
	syncMu      sync.Mutex
}

func Open(ctx context.Context, cfg Config) (*Engine, error) {
	workDir := strings.TrimSpace(cfg.WorkDir)
	ownsWorkDir := false
	if workDir == "" {
		dir, err := os.MkdirTemp("", "sqlscribe-duckdb-")
		if err != nil {
			return nil, fmt.Errorf("create duckdb work dir: %w", err)
		}
		workDir = dir
		ownsWorkDir = true
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create duckdb work dir: %w", err)
	}

	db, err := sql.Open("duckdb", strings.TrimSpace(cfg.Path))
	if err != nil {
		if ownsWorkDir {
			_ = os.RemoveAll(workDir)
		}
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		if ownsWorkDir {
			_ = os.RemoveAll(workDir)
		}
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Engine{
		db:          db,
		store:       cfg.Store,
		prefix:      strings.Trim(strings.TrimSpace(cfg.DatasetPrefix), "/"),
		workDir:     workDir,
		ownsWorkDir: ownsWorkDir,
	}, nil
}

func (e *Engine) Dialect() string {
	return query.DialectDuckDB
}

// SyncDatasets downloads every dataset file below the configured prefix and
// (re)creates one view per table over its parquet parts. It returns the
// table names it registered, sorted.
func (e *Engine) SyncDatasets(ctx context.Context) ([]string, error) {
	if e.store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	objects, err := e.store.List(ctx, e.prefix)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	groupedPaths := map[string][]string{}
	for _, object := range objects {
		tableName, ok := storage.TableFromDatasetKey(e.prefix, object.Key)
		if !ok {
			continue
		}
		localPath, err := e.download(ctx, tableName, object.Key)
		if err != nil {
			return nil, err
		}
		groupedPaths[tableName] = append(groupedPaths[tableName], localPath)
	}

	tables := make([]string, 0, len(groupedPaths))
	for tableName := range groupedPaths {
		tables = append(tables, tableName)
	}
	sort.Strings(tables)

	for _, tableName := range tables {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, query.QuoteIdent(tableName), quoteStringArray(groupedPaths[tableName]))
		if _, err := e.db.ExecContext(ctx, viewSQL); err != nil {
			return nil, fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}
	return tables, nil
}

func (e *Engine) download(ctx context.Context, tableName, key string) (string, error) {
	reader, err := e.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	tableDir := filepath.Join(e.workDir, sanitizeFileComponent(tableName))
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		return "", fmt.Errorf("create table dir %q: %w", tableDir, err)
	}
	localPath := filepath.Join(tableDir, sanitizeFileComponent(path.Base(key)))
	if _, err := stageParquetFile(localPath, reader); err != nil {
		return "", fmt.Errorf("stage dataset object %q: %w", key, err)
	}
	return localPath, nil
}

func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = ?
ORDER BY table_name`, mainSchema)
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

	rows, err := e.db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`, mainSchema, table)
	if err != nil {
		return schema.TableSchema{}, fmt.Errorf("describe table %q: %w", table, err)
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
	if len(columns) == 0 {
		return schema.TableSchema{}, fmt.Errorf("describe table %q: %w", table, query.ErrTableNotFound)
	}

	description, err := e.tableComment(ctx, table)
	if err != nil {
		return schema.TableSchema{}, err
	}
	return schema.TableSchema{Name: table, Description: description, Columns: columns}, nil
}

func (e *Engine) tableComment(ctx context.Context, table string) (string, error) {
	var comment sql.NullString
	err := e.db.QueryRowContext(ctx, `
SELECT comment FROM duckdb_views() WHERE schema_name = ? AND view_name = ?
UNION ALL
SELECT comment FROM duckdb_tables() WHERE schema_name = ? AND table_name = ?
LIMIT 1`, mainSchema, table, mainSchema, table).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read comment for table %q: %w", table, err)
	}
	return strings.TrimSpace(comment.String), nil
}

// DryRun plans a single statement with EXPLAIN inside a transaction that is
// always rolled back.
func (e *Engine) DryRun(ctx context.Context, sqlText string) error {
	sqlText, err := query.SingleStatement(sqlText)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dry-run transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, "EXPLAIN "+sqlText)
	if err != nil {
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	return nil
}

// Execute runs a single statement inside a transaction that is rolled back
// once the rows are read.
func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText, err := query.SingleStatement(request.SQL)
	if err != nil {
		return query.Result{}, err
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, nil)
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
	err := e.db.Close()
	if e.ownsWorkDir {
		_ = os.RemoveAll(e.workDir)
	}
	return err
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, query.QuoteString(value))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}
