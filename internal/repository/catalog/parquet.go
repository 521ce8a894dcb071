package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
)

// LoadParquet reads every row group of a Parquet file. The conditions column may
// be a string or a list of strings.
func LoadParquet(path string) ([]domcat.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	// Leaf columns are resolved by their top-level name so list columns map too.
	schema := pf.Schema()
	leaves := schema.Columns()
	top := make([]string, len(leaves))
	repeated := make([]bool, len(leaves))
	for i, path := range leaves {
		if len(path) > 0 {
			top[i] = path[0]
		}
		if leaf, ok := schema.Lookup(path...); ok {
			repeated[i] = leaf.MaxRepetitionLevel > 0
		}
	}
	fields, err := columnMap(top)
	if err != nil {
		return nil, err
	}

	var records []domcat.Record
	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := range n {
				records = append(records, rowToRecord(buf[i], fields, repeated, len(records)))
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read parquet rows: %w", readErr)
			}
		}
	}
	return records, nil
}

func rowToRecord(row parquet.Row, fields []domcat.Field, repeated []bool, idx int) domcat.Record {
	rec := domcat.Record{Row: idx}
	var conditions []string
	listConditions := false

	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(fields) || v.IsNull() {
			continue
		}
		f := fields[col]
		if f == domcat.FieldConditions {
			listConditions = listConditions || repeated[col]
			conditions = append(conditions, v.String())
			continue
		}
		rec.Set(f, v.String())
	}

	if listConditions {
		rec.ConditionList = conditions
	} else if len(conditions) > 0 {
		rec.Conditions = conditions[0]
	}
	return rec
}
