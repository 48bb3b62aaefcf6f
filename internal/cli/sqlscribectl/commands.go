package sqlscribectl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

type schemaPayload struct {
	Tables []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Columns     []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	} `json:"tables"`
	TableCount int `json:"table_count"`
}

type examplesPayload struct {
	Dialect         string   `json:"dialect"`
	Examples        []string `json:"examples"`
	SampleQuestions []struct {
		Category  string   `json:"category"`
		Questions []string `json:"questions"`
	} `json:"sample_questions"`
}

type generatedPayload struct {
	ID       string `json:"id"`
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type validationPayload struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type resultPayload struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

type runPayload struct {
	ID         string             `json:"id"`
	State      string             `json:"state"`
	Query      *generatedPayload  `json:"query"`
	Validation *validationPayload `json:"validation"`
	Result     *resultPayload     `json:"result"`
	Error      *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func (r *runner) schema(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	body, err := r.call(ctx, cmd, http.MethodGet, "/v1/schema", nil)
	if err != nil {
		return err
	}
	if format == OutputJSON {
		r.writeRaw(body)
		return nil
	}

	var payload schemaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return failuref("decode schema response: %v", err)
	}
	t := newTable(r.stdout)
	t.AppendHeader(table.Row{"table", "column", "type", "description"})
	for _, tbl := range payload.Tables {
		if len(tbl.Columns) == 0 {
			t.AppendRow(table.Row{tbl.Name, "", "", tbl.Description})
		}
		for i, column := range tbl.Columns {
			description := ""
			if i == 0 {
				description = tbl.Description
			}
			t.AppendRow(table.Row{tbl.Name, column.Name, column.Type, description})
		}
	}
	t.Render()
	_, _ = fmt.Fprintf(r.stdout, "(%d tables)\n", payload.TableCount)
	return nil
}

func (r *runner) examples(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	body, err := r.call(ctx, cmd, http.MethodGet, "/v1/examples", nil)
	if err != nil {
		return err
	}
	if format == OutputJSON {
		r.writeRaw(body)
		return nil
	}

	var payload examplesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return failuref("decode examples response: %v", err)
	}
	_, _ = fmt.Fprintf(r.stdout, "-- dialect: %s\n\n", payload.Dialect)
	for _, example := range payload.Examples {
		_, _ = fmt.Fprintf(r.stdout, "%s\n\n", example)
	}
	for _, category := range payload.SampleQuestions {
		_, _ = fmt.Fprintf(r.stdout, "%s:\n", category.Category)
		for _, question := range category.Questions {
			_, _ = fmt.Fprintf(r.stdout, "  - %s\n", question)
		}
	}
	return nil
}

func (r *runner) generate(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	question, err := joinedArgs(cmd, "question")
	if err != nil {
		return err
	}

	var body []byte
	err = r.withSpinner("generating SQL", func() error {
		var callErr error
		body, callErr = r.call(ctx, cmd, http.MethodPost, "/v1/query/generate", map[string]any{"question": question})
		return callErr
	})
	if err != nil {
		return err
	}
	if format == OutputJSON {
		r.writeRaw(body)
		return nil
	}

	var payload generatedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return failuref("decode generate response: %v", err)
	}
	_, _ = fmt.Fprintln(r.stdout, payload.SQL)
	_, _ = fmt.Fprintf(r.stderr, "-- %s/%s id=%s\n", payload.Provider, payload.Model, payload.ID)
	return nil
}

func (r *runner) validate(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	sqlText, err := joinedArgs(cmd, "sql")
	if err != nil {
		return err
	}
	body, err := r.call(ctx, cmd, http.MethodPost, "/v1/query/validate", map[string]any{"sql": sqlText})
	if err != nil {
		return err
	}

	var payload validationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return failuref("decode validate response: %v", err)
	}
	if format == OutputJSON {
		r.writeRaw(body)
	} else {
		writeValidation(r.stdout, payload)
	}
	if !payload.Valid {
		return &exitError{code: 1, err: fmt.Errorf("query is invalid")}
	}
	return nil
}

func (r *runner) execute(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	sqlText, err := joinedArgs(cmd, "sql")
	if err != nil {
		return err
	}
	body, err := r.call(ctx, cmd, http.MethodPost, "/v1/query/execute", map[string]any{
		"sql":       sqlText,
		"row_limit": cmd.Int("row-limit"),
	})
	if err != nil {
		return err
	}
	if format == OutputJSON {
		r.writeRaw(body)
		return nil
	}

	var payload resultPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return failuref("decode execute response: %v", err)
	}
	writeResult(r.stdout, payload)
	return nil
}

func (r *runner) ask(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	question, err := joinedArgs(cmd, "question")
	if err != nil {
		return err
	}

	var body []byte
	err = r.withSpinner("asking", func() error {
		var callErr error
		body, callErr = r.call(ctx, cmd, http.MethodPost, "/v1/ask", map[string]any{
			"question":  question,
			"execute":   cmd.Bool("execute"),
			"row_limit": cmd.Int("row-limit"),
		})
		return callErr
	})
	if err != nil {
		return err
	}

	var payload runPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return failuref("decode ask response: %v", err)
	}
	if format == OutputJSON {
		r.writeRaw(body)
	} else {
		writeRun(r.stdout, payload)
	}

	switch payload.State {
	case "failed", "rejected":
		return &exitError{code: 1, err: fmt.Errorf("run %s ended %s", payload.ID, payload.State)}
	}
	if payload.Error != nil {
		return &exitError{code: 1, err: fmt.Errorf("%s: %s", payload.Error.Code, payload.Error.Message)}
	}
	return nil
}

func writeValidation(w io.Writer, payload validationPayload) {
	status := "valid"
	if !payload.Valid {
		status = "invalid"
	}
	_, _ = fmt.Fprintf(w, "%s: %s\n", status, payload.Message)
}

func writeRun(w io.Writer, payload runPayload) {
	_, _ = fmt.Fprintf(w, "state: %s\n", payload.State)
	if payload.Query != nil {
		_, _ = fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(payload.Query.SQL))
	}
	if payload.Validation != nil {
		writeValidation(w, *payload.Validation)
	}
	if payload.Error != nil {
		_, _ = fmt.Fprintf(w, "error: %s: %s\n", payload.Error.Code, payload.Error.Message)
	}
	if payload.Result != nil {
		_, _ = fmt.Fprintln(w)
		writeResult(w, *payload.Result)
	}
}

func writeResult(w io.Writer, payload resultPayload) {
	if len(payload.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	t := newTable(w)
	header := make(table.Row, len(payload.Columns))
	for i, column := range payload.Columns {
		header[i] = column
	}
	t.AppendHeader(header)
	for _, values := range payload.Rows {
		row := make(table.Row, len(values))
		for i, value := range values {
			row[i] = formatValue(value)
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(payload.Rows))
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%g", typed)
	case string:
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}
