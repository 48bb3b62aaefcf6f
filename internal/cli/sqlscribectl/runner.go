package sqlscribectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// exitError carries the process exit code for a failed command. Usage
// problems exit 2, request and query failures exit 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func failuref(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

type runner struct {
	defaults Options
	stdout   io.Writer
	stderr   io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	r := &runner{defaults: defaults, stdout: defaults.Stdout, stderr: defaults.Stderr}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}

	root := r.command()
	err := root.Run(ctx, append([]string{"sqlscribectl"}, args...))
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		_, _ = fmt.Fprintln(r.stderr, exitErr.err)
		return exitErr.code
	}
	_, _ = fmt.Fprintln(r.stderr, err)
	return 2
}

func (r *runner) command() *cli.Command {
	return &cli.Command{
		Name:           "sqlscribectl",
		Usage:          "ask questions of your warehouse through the sqlscribe API",
		Writer:         r.stdout,
		ErrWriter:      r.stderr,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "sqlscribe API base URL",
				Value: firstNonEmpty(r.defaults.BaseURL, "http://localhost:8080"),
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "API key for authenticated requests",
				Value: r.defaults.APIKey,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP timeout (e.g. 90s)",
				Value: durationOr(r.defaults.Timeout, 90*time.Second),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: table or json",
				Value:   OutputTable,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				writeUsage(r.stderr)
				return usageErrorf("unknown command %q", cmd.Args().First())
			}
			writeUsage(r.stderr)
			return usageErrorf("a command is required")
		},
		Commands: []*cli.Command{
			{
				Name:  "health",
				Usage: "GET /v1/health",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.printJSON(ctx, cmd, http.MethodGet, "/v1/health", nil)
				},
			},
			{
				Name:  "ready",
				Usage: "GET /v1/ready",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.printJSON(ctx, cmd, http.MethodGet, "/v1/ready", nil)
				},
			},
			{
				Name:   "schema",
				Usage:  "show the schema catalog used for prompts",
				Action: r.schema,
			},
			{
				Name:  "refresh-schema",
				Usage: "reload the schema catalog from the warehouse",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.printJSON(ctx, cmd, http.MethodPost, "/v1/schema/refresh", nil)
				},
			},
			{
				Name:   "examples",
				Usage:  "list example queries and sample questions",
				Action: r.examples,
			},
			{
				Name:      "generate",
				Usage:     "generate SQL for a question",
				ArgsUsage: "<question>",
				Action:    r.generate,
			},
			{
				Name:      "validate",
				Usage:     "dry-run a SQL statement",
				ArgsUsage: "<sql>",
				Action:    r.validate,
			},
			{
				Name:      "execute",
				Usage:     "run a read-only SQL statement",
				ArgsUsage: "<sql>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "row-limit", Usage: "maximum rows to return (server caps it)"},
				},
				Action: r.execute,
			},
			{
				Name:      "ask",
				Usage:     "generate and validate SQL for a question, optionally running it",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "execute", Aliases: []string{"x"}, Usage: "run the query when it validates"},
					&cli.IntFlag{Name: "row-limit", Usage: "maximum rows to return (server caps it)"},
				},
				Action: r.ask,
			},
		},
	}
}

func (r *runner) call(ctx context.Context, cmd *cli.Command, method, path string, payload any) ([]byte, error) {
	client := r.defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cmd.Duration("timeout")}
	}
	endpoint := strings.TrimRight(cmd.String("base-url"), "/") + path
	code, body, err := doRequest(ctx, client, method, endpoint, cmd.String("api-key"), payload)
	if err != nil {
		return nil, failuref("request failed: %v", err)
	}
	if code >= 400 {
		return nil, failuref("http %d: %s", code, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (r *runner) printJSON(ctx context.Context, cmd *cli.Command, method, path string, payload any) error {
	body, err := r.call(ctx, cmd, method, path, payload)
	if err != nil {
		return err
	}
	r.writeRaw(body)
	return nil
}

func (r *runner) writeRaw(body []byte) {
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(body))
	}
}

// withSpinner shows progress on stderr while fn runs. The spinner stays
// silent when stderr is not a terminal.
func (r *runner) withSpinner(label string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.stderr))
	s.Suffix = " " + label
	s.Start()
	defer s.Stop()
	return fn()
}

func outputFormat(cmd *cli.Command) (string, error) {
	format := strings.ToLower(strings.TrimSpace(cmd.String("output")))
	switch format {
	case OutputTable, OutputJSON:
		return format, nil
	default:
		return "", usageErrorf("unsupported output %q (want %s or %s)", format, OutputTable, OutputJSON)
	}
}

func joinedArgs(cmd *cli.Command, name string) (string, error) {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if text == "" {
		return "", usageErrorf("%s requires a %s argument", cmd.Name, name)
	}
	return text, nil
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: sqlscribectl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                   GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                    GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema                   GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  refresh-schema           POST /v1/schema/refresh")
	_, _ = fmt.Fprintln(w, "  examples                 GET /v1/examples")
	_, _ = fmt.Fprintln(w, "  generate <question>      POST /v1/query/generate")
	_, _ = fmt.Fprintln(w, "  validate <sql>           POST /v1/query/validate")
	_, _ = fmt.Fprintln(w, "  execute <sql>            POST /v1/query/execute")
	_, _ = fmt.Fprintln(w, "  ask [-x] <question>      POST /v1/ask")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
