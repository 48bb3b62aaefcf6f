package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const DatasetFileExt = ".parquet"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildDatasetFilePath returns the key of one parquet part of a table:
// <prefix>/<table>/part-<sequence>.parquet.
func BuildDatasetFilePath(prefix, tableName string, sequence int) (string, error) {
	dir, err := DatasetTablePrefix(prefix, tableName)
	if err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(dir, fmt.Sprintf("part-%05d%s", sequence, DatasetFileExt)), nil
}

func DatasetTablePrefix(prefix, tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return tableName, nil
	}
	for _, component := range strings.Split(prefix, "/") {
		if err := validatePathComponent(component, "dataset prefix"); err != nil {
			return "", err
		}
	}
	return path.Join(prefix, tableName), nil
}

// TableFromDatasetKey reports the table a dataset key belongs to. Keys that
// are not parquet files directly below <prefix>/<table>/ are rejected.
func TableFromDatasetKey(prefix, key string) (string, bool) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key = strings.TrimPrefix(key, "/")
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix+"/")
	}
	table, file, ok := strings.Cut(key, "/")
	if !ok || strings.Contains(file, "/") || !strings.HasSuffix(file, DatasetFileExt) {
		return "", false
	}
	if validatePathComponent(table, "table name") != nil {
		return "", false
	}
	return table, true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
