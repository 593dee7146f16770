package valve

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrPrecondition indicates a function was used where its required
	// context is unavailable, such as lookup outside a rule.
	ErrPrecondition = errors.New("precondition failed")

	// ErrInvalidCondition indicates a condition that should have been
	// rejected while configuring reached evaluation.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrUnknownFunction indicates evaluation of an unregistered function.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrMissingTable indicates a required configuration table is absent.
	ErrMissingTable = errors.New("missing configuration table")
)

// RegistrationError reports a function that cannot be registered.
type RegistrationError struct {
	Name    string
	Message string
}

// Error returns the error message.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register function %q: %s", e.Name, e.Message)
}

// EvaluationError is a fault raised while evaluating a condition against
// a cell. It halts the run.
type EvaluationError struct {
	Table     string
	Column    string
	Row       int
	Condition string
	Cause     error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("table %s column %s row %d: evaluating %s: %v", e.Table, e.Column, e.Row, e.Condition, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}
