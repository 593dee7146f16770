package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a run ID is not in the history.
var ErrNotFound = errors.New("run not found")

// StorageError represents an error from the database.
type StorageError struct {
	Driver    string // database/sql driver name
	Operation string // operation that failed ("open", "record", "list", ...)
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [driver=%s, operation=%s]: %v", e.Driver, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(driver, operation string, cause error) *StorageError {
	return &StorageError{Driver: driver, Operation: operation, Cause: cause}
}
