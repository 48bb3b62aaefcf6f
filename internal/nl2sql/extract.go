package nl2sql

import "strings"

const (
	sqlFenceOpen = "```sql"
	fenceClose   = "```"
)

// ExtractSQL strips one leading ```sql fence and one trailing ``` fence from
// raw model output. Anything else, including prose around the statement, is
// returned untouched.
func ExtractSQL(raw string) string {
	text := strings.TrimSpace(raw)
	if len(text) >= len(sqlFenceOpen) && strings.EqualFold(text[:len(sqlFenceOpen)], sqlFenceOpen) {
		text = text[len(sqlFenceOpen):]
	}
	text = strings.TrimSuffix(text, fenceClose)
	return strings.TrimSpace(text)
}
