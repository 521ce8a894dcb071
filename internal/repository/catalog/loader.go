// Package catalog reads the product corpus from CSV, Parquet or SQLite files.
package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
)

// DefaultTable is the SQLite table read when none is given.
const DefaultTable = "products"

// Load picks a reader by file extension: .csv, .parquet, or .db/.sqlite/.sqlite3.
func Load(ctx context.Context, path, table string) ([]domcat.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".parquet":
		return LoadParquet(path)
	case ".db", ".sqlite", ".sqlite3":
		if table == "" {
			table = DefaultTable
		}
		return LoadSQLite(ctx, path, table)
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", filepath.Ext(path))
	}
}

// columnMap resolves source column names to record fields and checks the required ones.
func columnMap(names []string) ([]domcat.Field, error) {
	fields := make([]domcat.Field, len(names))
	present := make(map[domcat.Field]bool, len(names))
	for i, n := range names {
		fields[i] = domcat.FieldForColumn(n)
		present[fields[i]] = true
	}
	if missing := domcat.MissingFields(present); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = f.String()
		}
		return nil, fmt.Errorf("corpus is missing required columns: %s", strings.Join(names, ", "))
	}
	return fields, nil
}
