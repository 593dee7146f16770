// Package report defines validation violations and how they are addressed,
// ordered and written out.
//
// Cells are addressed in A1 notation: columns are letters starting at A
// for the first column, rows are numbers. Data rows are numbered from a
// configurable start (2 by default, so the header occupies row 1).
// Configuration tables (datatype, field and rule) are addressed with the
// row number assigned while they were read, which already includes that
// offset.
package report
