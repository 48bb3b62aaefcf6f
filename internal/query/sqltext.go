package query

import (
	"fmt"
	"strings"
)

// WrapRowLimit caps a statement by wrapping it in an outer SELECT. A
// non-positive limit returns the statement unchanged.
func WrapRowLimit(sqlText string, rowLimit int) string {
	if rowLimit <= 0 {
		return sqlText
	}
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS q LIMIT %d", sqlText, rowLimit)
}

// IsReadOnly accepts statements that start with SELECT or WITH after any
// leading line comments. It is a prefix check, not a parser.
func IsReadOnly(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(skipLeadingComments(sqlText)))
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}

func skipLeadingComments(sqlText string) string {
	rest := strings.TrimSpace(sqlText)
	for strings.HasPrefix(rest, "--") {
		newline := strings.IndexByte(rest, '\n')
		if newline < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[newline+1:])
	}
	return rest
}

func NormalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func QuoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
