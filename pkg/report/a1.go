package report

import (
	"strconv"
	"strings"

	"valve-hq/valve/pkg/table"
)

// DefaultRowStart is the row number of the first data row.
const DefaultRowStart = 2

// ColumnLetters converts a 1-based column number to letters: 1 is A,
// 26 is Z, 27 is AA.
func ColumnLetters(col int) string {
	var sb []byte
	for col > 0 {
		mod := col % 26
		col /= 26
		if mod == 0 {
			mod = 26
			col--
		}
		sb = append(sb, byte('A'+mod-1))
	}
	for i, j := 0, len(sb)-1; i < j; i, j = i+1, j-1 {
		sb[i], sb[j] = sb[j], sb[i]
	}
	return string(sb)
}

// ColumnNumber is the inverse of ColumnLetters. It returns 0 for input
// that is not made of upper-case letters.
func ColumnNumber(letters string) int {
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0
		}
		n = n*26 + int(r-'A'+1)
	}
	return n
}

// IdxToA1 renders a row number and 1-based column number as an A1 reference.
func IdxToA1(row, col int) string {
	return ColumnLetters(col) + strconv.Itoa(row)
}

// SplitA1 returns the 1-based column number and row number of an A1
// reference.
func SplitA1(cell string) (col, row int, ok bool) {
	i := strings.IndexFunc(cell, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return 0, 0, false
	}
	col = ColumnNumber(cell[:i])
	row, err := strconv.Atoi(cell[i:])
	if col == 0 || err != nil {
		return 0, 0, false
	}
	return col, row, true
}

// ConfigTables names the tables whose rows are addressed by their own
// row number instead of by an offset index.
var ConfigTables = map[string]bool{
	"datatype": true,
	"field":    true,
	"rule":     true,
}

// Locator turns table, column and row positions into A1 cell addresses.
type Locator struct {
	Tables   *table.Set
	RowStart int
}

// NewLocator returns a locator over tables. A rowStart below 1 selects
// DefaultRowStart.
func NewLocator(tables *table.Set, rowStart int) *Locator {
	if rowStart < 1 {
		rowStart = DefaultRowStart
	}
	return &Locator{Tables: tables, RowStart: rowStart}
}

// Cell addresses column of the given row. For data tables rowIdx is the
// 0-based row index; for configuration tables it is already the row number.
func (l *Locator) Cell(tableName, column string, rowIdx int) string {
	col := 0
	if t, ok := l.Tables.Get(tableName); ok {
		col = t.ColumnIndex(column) + 1
	}
	row := rowIdx
	if !ConfigTables[tableName] {
		row += l.RowStart
	}
	if col <= 0 {
		return strconv.Itoa(row)
	}
	return IdxToA1(row, col)
}

// RowNumber is the number shown for the 0-based data row rowIdx.
func (l *Locator) RowNumber(rowIdx int) int {
	return rowIdx + l.RowStart
}

// New builds a violation addressed through the locator.
func (l *Locator) New(tableName, column string, rowIdx int, level Level, message string) Violation {
	return Violation{
		Table:   tableName,
		Cell:    l.Cell(tableName, column, rowIdx),
		Level:   level,
		Message: message,
	}
}
