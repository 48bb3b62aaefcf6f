package marketing

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/schema"
)

var (
	//go:embed data/catalog.yaml
	catalogYAML []byte
	//go:embed data/examples_bigquery.sql
	examplesBigQuery []byte
	//go:embed data/examples_standard.sql
	examplesStandard []byte
	//go:embed data/questions.yaml
	questionsYAML []byte
)

type QuestionCategory struct {
	Category  string   `yaml:"category" json:"category"`
	Questions []string `yaml:"questions" json:"questions"`
}

// Catalog returns the sample marketing tables with their descriptions.
func Catalog() (schema.Catalog, error) {
	catalog, err := schema.Decode(bytes.NewReader(catalogYAML))
	if err != nil {
		return schema.Catalog{}, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return catalog, nil
}

// Examples returns the sample KPI query block written for dialect. DuckDB
// and PostgreSQL share one file.
func Examples(dialect string) string {
	if dialect == query.DialectBigQuery {
		return string(examplesBigQuery)
	}
	return string(examplesStandard)
}

func SampleQuestions() ([]QuestionCategory, error) {
	var categories []QuestionCategory
	if err := yaml.Unmarshal(questionsYAML, &categories); err != nil {
		return nil, fmt.Errorf("decode embedded questions: %w", err)
	}
	return categories, nil
}
