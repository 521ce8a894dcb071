package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
)

// LoadCSV reads a headed CSV file.
func LoadCSV(path string) ([]domcat.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}

// ReadCSV parses CSV from r. The first row is the header.
func ReadCSV(r io.Reader) ([]domcat.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	fields, err := columnMap(header)
	if err != nil {
		return nil, err
	}

	var records []domcat.Record
	for row := 0; ; row++ {
		line, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		rec := domcat.Record{Row: row}
		for i, v := range line {
			if i < len(fields) {
				rec.Set(fields[i], v)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
