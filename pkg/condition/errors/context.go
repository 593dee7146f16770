package errors

import (
	"strings"
	"unicode/utf8"
)

// Caret renders text followed by a line with a ^ under the given 1-based
// character offset. It returns "" when the offset falls outside the text.
func Caret(text string, offset int) string {
	n := utf8.RuneCountInString(text)
	if offset < 1 || offset > n+1 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(text)
	sb.WriteString("\n  ")
	sb.WriteString(strings.Repeat(" ", offset-1))
	sb.WriteString("^\n")
	return sb.String()
}

// WithContext fills in the caret context of err from the condition text.
func WithContext(err *Error, text string) *Error {
	if err != nil && err.Location.Offset > 0 {
		err.Context = Caret(text, err.Location.Offset)
	}
	return err
}
