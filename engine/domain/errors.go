package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and lookup failures.
var (
	ErrQueryEmpty    = errors.New("query is empty")
	ErrQueryTooLong  = errors.New("query too long")
	ErrInvalidTopK   = errors.New("top_k must be at least 1")
	ErrEmptyCatalog  = errors.New("catalog is empty")
	ErrNotInCatalog  = errors.New("record not in catalog")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
