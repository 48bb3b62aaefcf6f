package schema

import (
	"errors"
	"fmt"
	"strings"
)

const DefaultDescription = "No description available"

var ErrDuplicateTable = errors.New("duplicate table")

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TableSchema struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
}

// Catalog is an ordered set of table schemas keyed by unique table name.
// The zero value is an empty catalog ready for use.
type Catalog struct {
	tables []TableSchema
	index  map[string]int
}

func NewCatalog(tables ...TableSchema) (Catalog, error) {
	var c Catalog
	for _, table := range tables {
		if err := c.Add(table); err != nil {
			return Catalog{}, err
		}
	}
	return c, nil
}

func (c *Catalog) Add(table TableSchema) error {
	name := strings.TrimSpace(table.Name)
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	if c.index == nil {
		c.index = map[string]int{}
	}
	if _, ok := c.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTable, name)
	}
	table.Name = name
	table.Columns = append([]Column(nil), table.Columns...)
	c.index[name] = len(c.tables)
	c.tables = append(c.tables, table)
	return nil
}

func (c Catalog) Len() int {
	return len(c.tables)
}

func (c Catalog) Tables() []TableSchema {
	out := make([]TableSchema, len(c.tables))
	for i, table := range c.tables {
		table.Columns = append([]Column(nil), table.Columns...)
		out[i] = table
	}
	return out
}

func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.tables))
	for _, table := range c.tables {
		names = append(names, table.Name)
	}
	return names
}

func (c Catalog) Table(name string) (TableSchema, bool) {
	i, ok := c.index[strings.TrimSpace(name)]
	if !ok {
		return TableSchema{}, false
	}
	table := c.tables[i]
	table.Columns = append([]Column(nil), table.Columns...)
	return table, true
}

// WithDescriptions returns a copy of c where tables lacking a description
// take the description of the same-named table in other.
func (c Catalog) WithDescriptions(other Catalog) Catalog {
	out := Catalog{index: make(map[string]int, len(c.tables))}
	for i, table := range c.Tables() {
		if strings.TrimSpace(table.Description) == "" {
			if described, ok := other.Table(table.Name); ok {
				table.Description = described.Description
			}
		}
		out.index[table.Name] = i
		out.tables = append(out.tables, table)
	}
	return out
}
