package ast

import "fmt"

// Location identifies the table cell a condition was read from.
// Row is the number used when addressing the cell, and Offset is the
// 1-based character position inside the cell text (0 when unknown).
type Location struct {
	Table  string
	Column string
	Row    int
	Offset int
}

// String returns a human-readable representation of the location.
// Format: "table.column:row" with ":offset" appended when known.
func (l Location) String() string {
	if l.Table == "" {
		if l.Offset > 0 {
			return fmt.Sprintf("position %d", l.Offset)
		}
		return "<unknown>"
	}
	s := fmt.Sprintf("%s.%s:%d", l.Table, l.Column, l.Row)
	if l.Offset > 0 {
		s = fmt.Sprintf("%s:%d", s, l.Offset)
	}
	return s
}

// IsValid returns true if the location names a cell or a text position.
func (l Location) IsValid() bool {
	return l.Table != "" || l.Offset > 0
}
