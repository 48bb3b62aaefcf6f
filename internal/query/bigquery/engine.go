package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/schema"
)

type Config struct {
	ProjectID       string
	DatasetID       string
	Location        string
	CredentialsFile string
}

type queryConfig struct {
	SQL       string
	ProjectID string
	DatasetID string
	DryRun    bool
}

// client is the slice of the BigQuery API the engine needs.
type client interface {
	TableNames(ctx context.Context, datasetID string) ([]string, error)
	TableMetadata(ctx context.Context, datasetID, table string) (*bigquery.TableMetadata, error)
	DatasetExists(ctx context.Context, datasetID string) error
	Run(ctx context.Context, cfg queryConfig) error
	Read(ctx context.Context, cfg queryConfig, rowLimit int) ([]string, [][]any, error)
	Close() error
}

// Engine runs queries against one BigQuery dataset. Unqualified table names
// resolve against that dataset.
type Engine struct {
	client    client
	projectID string
	datasetID string
}

func Open(ctx context.Context, cfg Config) (*Engine, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, fmt.Errorf("bigquery project id is required")
	}
	datasetID := strings.TrimSpace(cfg.DatasetID)
	if datasetID == "" {
		return nil, fmt.Errorf("bigquery dataset id is required")
	}

	opts := make([]option.ClientOption, 0, 1)
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	bq, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if location := strings.TrimSpace(cfg.Location); location != "" {
		bq.Location = location
	}
	return NewWithClient(projectID, datasetID, &bqClient{client: bq})
}

func NewWithClient(projectID, datasetID string, c client) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(datasetID) == "" {
		return nil, fmt.Errorf("dataset id is required")
	}
	return &Engine{client: c, projectID: strings.TrimSpace(projectID), datasetID: strings.TrimSpace(datasetID)}, nil
}

func (e *Engine) Dialect() string {
	return query.DialectBigQuery
}

func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	tables, err := e.client.TableNames(ctx, e.datasetID)
	if err != nil {
		return nil, fmt.Errorf("list tables in dataset %q: %w", e.datasetID, err)
	}
	return tables, nil
}

func (e *Engine) GetSchema(ctx context.Context, table string) (schema.TableSchema, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return schema.TableSchema{}, fmt.Errorf("table name is required")
	}
	md, err := e.client.TableMetadata(ctx, e.datasetID, table)
	if err != nil {
		if isNotFound(err) {
			return schema.TableSchema{}, fmt.Errorf("describe table %q: %w", table, query.ErrTableNotFound)
		}
		return schema.TableSchema{}, fmt.Errorf("describe table %q: %w", table, err)
	}
	return schema.TableSchema{
		Name:        table,
		Description: strings.TrimSpace(md.Description),
		Columns:     columnsFromSchema(md.Schema),
	}, nil
}

// DryRun submits the statement with DryRun set and the query cache disabled.
// Nothing is billed or executed.
func (e *Engine) DryRun(ctx context.Context, sqlText string) error {
	sqlText, err := query.SingleStatement(sqlText)
	if err != nil {
		return err
	}
	return e.client.Run(ctx, queryConfig{SQL: sqlText, ProjectID: e.projectID, DatasetID: e.datasetID, DryRun: true})
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText, err := query.SingleStatement(request.SQL)
	if err != nil {
		return query.Result{}, err
	}

	start := time.Now()
	columns, rows, err := e.client.Read(ctx, queryConfig{
		SQL:       query.WrapRowLimit(sqlText, request.RowLimit),
		ProjectID: e.projectID,
		DatasetID: e.datasetID,
	}, request.RowLimit)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	for i, row := range rows {
		rows[i] = normalizeValues(row)
	}
	return query.Result{Columns: columns, Rows: rows, Duration: time.Since(start)}, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := e.client.DatasetExists(ctx, e.datasetID); err != nil {
		return fmt.Errorf("dataset %q: %w", e.datasetID, err)
	}
	return nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}

// columnsFromSchema flattens nested RECORD fields into dotted names and marks
// repeated fields as arrays.
func columnsFromSchema(fields bigquery.Schema) []schema.Column {
	columns := make([]schema.Column, 0, len(fields))
	var walk func(prefix string, fields bigquery.Schema)
	walk = func(prefix string, fields bigquery.Schema) {
		for _, field := range fields {
			if field == nil {
				continue
			}
			name := prefix + field.Name
			fieldType := string(field.Type)
			if field.Repeated {
				fieldType = "ARRAY<" + fieldType + ">"
			}
			columns = append(columns, schema.Column{Name: name, Type: fieldType})
			if len(field.Schema) > 0 {
				walk(name+".", field.Schema)
			}
		}
	}
	walk("", fields)
	return columns
}

func normalizeValues(values []any) []any {
	normalized := query.NormalizeValues(values)
	for i, value := range normalized {
		if rat, ok := value.(*big.Rat); ok && rat != nil {
			f, _ := rat.Float64()
			normalized[i] = f
		}
	}
	return normalized
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

type bqClient struct {
	client *bigquery.Client
}

func (b *bqClient) TableNames(ctx context.Context, datasetID string) ([]string, error) {
	it := b.client.Dataset(datasetID).Tables(ctx)
	names := make([]string, 0)
	for {
		table, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, table.TableID)
	}
	return names, nil
}

func (b *bqClient) TableMetadata(ctx context.Context, datasetID, table string) (*bigquery.TableMetadata, error) {
	return b.client.Dataset(datasetID).Table(table).Metadata(ctx)
}

func (b *bqClient) DatasetExists(ctx context.Context, datasetID string) error {
	_, err := b.client.Dataset(datasetID).Metadata(ctx)
	return err
}

func (b *bqClient) newQuery(cfg queryConfig) *bigquery.Query {
	q := b.client.Query(cfg.SQL)
	q.DefaultProjectID = cfg.ProjectID
	q.DefaultDatasetID = cfg.DatasetID
	q.DryRun = cfg.DryRun
	q.DisableQueryCache = cfg.DryRun
	return q
}

func (b *bqClient) Run(ctx context.Context, cfg queryConfig) error {
	job, err := b.newQuery(cfg).Run(ctx)
	if err != nil {
		return err
	}
	if status := job.LastStatus(); status != nil {
		return status.Err()
	}
	return nil
}

func (b *bqClient) Read(ctx context.Context, cfg queryConfig, rowLimit int) ([]string, [][]any, error) {
	it, err := b.newQuery(cfg).Read(ctx)
	if err != nil {
		return nil, nil, err
	}
	rows := make([][]any, 0)
	for rowLimit <= 0 || len(rows) < rowLimit {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := make([]any, len(values))
		for i, value := range values {
			row[i] = value
		}
		rows = append(rows, row)
	}
	columns := make([]string, 0, len(it.Schema))
	for _, field := range it.Schema {
		columns = append(columns, field.Name)
	}
	return columns, rows, nil
}

func (b *bqClient) Close() error {
	return b.client.Close()
}
