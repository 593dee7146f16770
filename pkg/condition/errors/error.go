package errors

import (
	"fmt"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
)

// ErrorType categorizes the type of error encountered during parsing or checking.
type ErrorType string

const (
	ErrorTypeSyntax    ErrorType = "syntax"    // Condition text does not parse
	ErrorTypeShape     ErrorType = "shape"     // Wrong argument kinds or count
	ErrorTypeReference ErrorType = "reference" // Unknown table, column, datatype, function or tree
	ErrorTypeConfig    ErrorType = "config"    // Malformed configuration row
)

// Error represents a rich error with location, context, and suggestions.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Location   ast.Location // Cell and character position
	Context    string       // Condition text with a caret under Location.Offset
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf(" at %s", e.Location.String()))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Suggestion))
	}

	return sb.String()
}

// Is matches any *Error with the same Type, so callers can write
// errors.Is(err, &Error{Type: ErrorTypeSyntax}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given type.
func New(errType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// ErrorList represents a collection of errors encountered during checking.
// It allows accumulating multiple errors instead of failing on the first error.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list. Nil errors are ignored.
func (el *ErrorList) Add(err *Error) {
	if err == nil {
		return
	}
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, location ast.Location, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// Merge appends every error from other.
func (el *ErrorList) Merge(other *ErrorList) {
	if other == nil {
		return
	}
	el.Errors = append(el.Errors, other.Errors...)
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Messages returns the bare message of every error, in order.
func (el *ErrorList) Messages() []string {
	msgs := make([]string, len(el.Errors))
	for i, err := range el.Errors {
		msgs[i] = err.Message
	}
	return msgs
}

// Error implements the error interface.
// A single error is returned as is; several are joined with "; ".
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if el.Count() == 1 {
		return el.Errors[0].Error()
	}

	parts := make([]string, el.Count())
	for i, err := range el.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("found %d errors: %s", el.Count(), strings.Join(parts, "; "))
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}
