package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes header and records to path, choosing the delimiter from
// the file extension. Parent directories are created as needed.
func WriteFile(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = Delimiter(path)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Write saves t to path using its own column order.
func (t *Table) Write(path string) error {
	records := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		record := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			record[j] = row[col]
		}
		records[i] = record
	}
	return WriteFile(path, t.Columns, records)
}
