package nl2sql

import (
	"strconv"
	"strings"
)

const (
	DefaultDialect = "BigQuery"
	DefaultRowCap  = 1000
)

type PromptContext struct {
	Question        string
	FormattedSchema string
	// SampleQueries is substituted into the prompt unchanged.
	SampleQueries string
}

// PromptBuilder assembles the fixed generation template. The template never
// branches on the question; only the dialect name and row cap vary.
type PromptBuilder struct {
	Dialect string
	RowCap  int
}

func BuildPrompt(question, formattedSchema, examples string) string {
	return PromptBuilder{}.Build(PromptContext{
		Question:        question,
		FormattedSchema: formattedSchema,
		SampleQueries:   examples,
	})
}

func (b PromptBuilder) Build(pc PromptContext) string {
	dialect := strings.TrimSpace(b.Dialect)
	if dialect == "" {
		dialect = DefaultDialect
	}
	rowCap := b.RowCap
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}

	var p strings.Builder
	p.WriteString("You are an expert SQL analyst specializing in ")
	p.WriteString(dialect)
	p.WriteString(". Convert the user's natural language question into a single ")
	p.WriteString(dialect)
	p.WriteString(" SQL query.\n\n")

	p.WriteString("### Schema\n")
	writeSection(&p, pc.FormattedSchema, "(no tables available)")
	p.WriteString("### End Schema\n\n")

	p.WriteString("### Example queries\n")
	writeSection(&p, pc.SampleQueries, "(none)")
	p.WriteString("### End Example queries\n\n")

	p.WriteString("### Question\n")
	p.WriteString(pc.Question)
	p.WriteString("\n### End Question\n\n")

	p.WriteString("### Instructions\n")
	p.WriteString("1. Generate one valid ")
	p.WriteString(dialect)
	p.WriteString(" SQL query that answers the question.\n")
	p.WriteString("2. Use only tables and columns listed in the schema, with valid ")
	p.WriteString(dialect)
	p.WriteString(" syntax and functions.\n")
	p.WriteString("3. Include WHERE clauses when the question implies filtering.\n")
	p.WriteString("4. Add a LIMIT clause if the result might be large (max ")
	p.WriteString(strconv.Itoa(rowCap))
	p.WriteString(" rows).\n")
	p.WriteString("5. Use descriptive column aliases when needed.\n")
	p.WriteString("6. Only return the SQL query, no explanations.\n")
	p.WriteString("### End Instructions\n\n")
	p.WriteString("SQL Query:\n")
	return p.String()
}

// writeSection copies body as given, adding a newline only when body lacks
// one so the closing delimiter starts its own line.
func writeSection(p *strings.Builder, body, placeholder string) {
	if body == "" {
		body = placeholder
	}
	p.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		p.WriteString("\n")
	}
}
