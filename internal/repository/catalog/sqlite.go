package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/cosmerec/internal/db"
	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
)

// LoadSQLite reads all rows of table, ordered by rowid.
func LoadSQLite(ctx context.Context, path, table string) ([]domcat.Record, error) {
	if !db.IsValidIdentifier(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}

	conn, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, `SELECT * FROM "`+table+`" ORDER BY rowid`) //nolint:gosec // identifier validated above
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	fields, err := columnMap(cols)
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var records []domcat.Record
	for row := 0; rows.Next(); row++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", row, err)
		}
		rec := domcat.Record{Row: row}
		for i, v := range values {
			if v.Valid {
				rec.Set(fields[i], v.String)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return records, nil
}
