// Package errors provides rich error types for condition parsing and
// configuration checking.
//
// An Error carries a category, a message, the cell it was found in and an
// optional suggestion. ErrorList accumulates many errors so a whole
// configuration table can be checked in one pass instead of stopping at
// the first problem.
//
// # Error Types
//
// ErrorTypeSyntax: condition text that does not parse
//
// ErrorTypeShape: a function applied to the wrong kinds or number of arguments
//
// ErrorTypeReference: an unknown table, column, datatype, function or tree
//
// ErrorTypeConfig: any other malformed configuration row
//
// # Suggestions
//
// SuggestName proposes the closest known name for a misspelled one:
//
//	errors.SuggestName("labl", []string{"label", "blank"}) // "did you mean 'label'?"
//
// Caret renders the condition text with a marker under a syntax error
// position for display on a terminal.
package errors
