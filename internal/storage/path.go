package storage

import (
	"fmt"
	"path"
	"regexp"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const tablesRoot = "tables"

// TableDataPrefix is the directory holding every parquet part of a table.
func TableDataPrefix(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(tablesRoot, tableName) + "/", nil
}

func BuildTableFilePath(tableName string, sequence int) (string, error) {
	prefix, err := TableDataPrefix(tableName)
	if err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return prefix + fmt.Sprintf("part-%05d.parquet", sequence), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) || value == "." || value == ".." {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
