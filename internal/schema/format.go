package schema

import "strings"

// Format renders the catalog as the plain-text block embedded in prompts.
// Tables appear in catalog order separated by one blank line; an empty
// catalog renders as the empty string.
func Format(c Catalog) string {
	blocks := make([]string, 0, c.Len())
	for _, table := range c.tables {
		blocks = append(blocks, formatTable(table))
	}
	return strings.Join(blocks, "\n")
}

func formatTable(table TableSchema) string {
	description := strings.TrimSpace(table.Description)
	if description == "" {
		description = DefaultDescription
	}

	var b strings.Builder
	b.WriteString("Table: ")
	b.WriteString(table.Name)
	b.WriteString("\nDescription: ")
	b.WriteString(description)
	b.WriteString("\nColumns:\n")
	for _, column := range table.Columns {
		b.WriteString("  - ")
		b.WriteString(column.Name)
		b.WriteString(": ")
		b.WriteString(column.Type)
		b.WriteString("\n")
	}
	return b.String()
}
