package report

import (
	"path/filepath"
	"sort"

	"valve-hq/valve/pkg/table"
)

// DistinctSuffix is appended to a table name to name its distinct table.
const DistinctSuffix = "_distinct"

// Distinct reduces t to the rows that carry at least one violation whose
// message has not already been seen earlier in the table. Those
// violations are re-addressed to the new table, whose rows are numbered
// from rowStart in order. It returns nil when no row qualifies.
// Violations that do not name a cell are dropped.
func Distinct(t *table.Table, vs []Violation, rowStart int) (*table.Table, []Violation) {
	seen := make(map[string]bool)
	byRow := make(map[int][]Violation)
	for _, v := range vs {
		if v.Table != t.Name || seen[v.Message] {
			continue
		}
		seen[v.Message] = true
		_, row, ok := SplitA1(v.Cell)
		if !ok {
			continue
		}
		byRow[row] = append(byRow[row], v)
	}
	if len(byRow) == 0 {
		return nil, nil
	}

	rows := make([]int, 0, len(byRow))
	for row := range byRow {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	name := t.Name + DistinctSuffix
	out := &table.Table{Name: name, Columns: append([]string(nil), t.Columns...)}
	var moved []Violation
	next := rowStart
	for _, row := range rows {
		idx := row - rowStart
		if idx < 0 || idx >= len(t.Rows) {
			continue
		}
		out.Rows = append(out.Rows, t.Rows[idx])
		for _, v := range byRow[row] {
			col, _, _ := SplitA1(v.Cell)
			v.Table = name
			v.Cell = IdxToA1(next, col)
			moved = append(moved, v)
		}
		next++
	}
	return out, moved
}

// DistinctPath returns where the distinct table for path is written:
// foo/bar.tsv becomes dir/bar_distinct.tsv.
func DistinctPath(dir, path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".tsv"
	}
	return filepath.Join(dir, table.NameFromPath(path)+DistinctSuffix+ext)
}
