package table

import (
	"path/filepath"
	"strings"
)

// Row maps column headers to cell text.
type Row map[string]string

// Table is a named, ordered list of rows.
type Table struct {
	Name        string
	Path        string
	Columns     []string
	Rows        []Row
	Fingerprint uint64 // xxh3 hash of the file contents, 0 when built in memory
}

// New builds an in-memory table.
func New(name string, columns []string, rows ...Row) *Table {
	return &Table{Name: name, Columns: columns, Rows: rows}
}

// NameFromPath returns the table name a file is loaded under.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HasColumn reports whether the table has the given header.
func (t *Table) HasColumn(column string) bool {
	return t.ColumnIndex(column) >= 0
}

// ColumnIndex returns the 0-based position of column, or -1.
func (t *Table) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the cell at rowIdx and column, or "" when out of range.
func (t *Table) Value(rowIdx int, column string) string {
	if rowIdx < 0 || rowIdx >= len(t.Rows) {
		return ""
	}
	return t.Rows[rowIdx][column]
}

// Values returns every cell of column in row order, blanks included.
func (t *Table) Values(column string) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[column]
	}
	return values
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
