package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads a catalog document of the form
//
//	table_name:
//	  description: text
//	  columns:
//	    column_name: type
//
// from YAML or JSON, keeping the document order of tables and columns.
func Decode(r io.Reader) (Catalog, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, nil
		}
		return Catalog{}, fmt.Errorf("decode catalog document: %w", err)
	}
	if len(doc.Content) == 0 {
		return Catalog{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Catalog{}, fmt.Errorf("catalog document must be a mapping of table names")
	}

	var catalog Catalog
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := strings.TrimSpace(root.Content[i].Value)
		table, err := decodeTable(name, root.Content[i+1])
		if err != nil {
			return Catalog{}, err
		}
		if err := catalog.Add(table); err != nil {
			return Catalog{}, err
		}
	}
	return catalog, nil
}

func LoadFile(path string) (Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open catalog file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Decode(file)
}

func decodeTable(name string, node *yaml.Node) (TableSchema, error) {
	if node.Kind != yaml.MappingNode {
		return TableSchema{}, fmt.Errorf("table %q: expected mapping", name)
	}
	table := TableSchema{Name: name}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "description":
			table.Description = strings.TrimSpace(value.Value)
		case "columns":
			columns, err := decodeColumns(name, value)
			if err != nil {
				return TableSchema{}, err
			}
			table.Columns = columns
		default:
			return TableSchema{}, fmt.Errorf("table %q: unknown field %q", name, key)
		}
	}
	return table, nil
}

func decodeColumns(table string, node *yaml.Node) ([]Column, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("table %q: columns must be a mapping of name to type", table)
	}
	columns := make([]Column, 0, len(node.Content)/2)
	seen := map[string]struct{}{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := strings.TrimSpace(node.Content[i].Value)
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("table %q: duplicate column %q", table, name)
		}
		seen[name] = struct{}{}
		if node.Content[i+1].Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("table %q: column %q type must be a string", table, name)
		}
		columns = append(columns, Column{Name: name, Type: strings.TrimSpace(node.Content[i+1].Value)})
	}
	return columns, nil
}
