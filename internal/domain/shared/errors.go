package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for callers that need to decide how to
// react (correct input, retry, alert an operator).
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindConflict      ErrorKind = "CONFLICT"
	KindConfiguration ErrorKind = "CONFIGURATION"
	KindPersistence   ErrorKind = "PERSISTENCE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Field is set for validation errors that concern a single input field
	Field string `json:"field,omitempty"`
	Err   error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is match sentinels even after WithMessage/Wrap copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may retry the same request unchanged
func (e *DomainError) Retryable() bool {
	return e.Kind == KindPersistence
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of the error with err attached as the cause
func (e *DomainError) Wrap(err error) *DomainError {
	cp := *e
	cp.Err = err
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Field:   field,
	}
}

// NewNotFoundError creates a not found error for the given resource
func NewNotFoundError(resource string, id any) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

// NewConflictError creates a conflict error
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// NewConfigurationError creates an error signalling missing or broken reference data
func NewConfigurationError(code, message string) *DomainError {
	return NewDomainError(KindConfiguration, code, message)
}

// NewPersistenceError wraps a storage failure
func NewPersistenceError(op string, err error) *DomainError {
	return &DomainError{
		Kind:    KindPersistence,
		Code:    "PERSISTENCE_ERROR",
		Message: fmt.Sprintf("failed to %s", op),
		Err:     err,
	}
}

// IsKind reports whether err is a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(KindConflict, "INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(KindConflict, "INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrTimeout             = NewDomainError(KindPersistence, "TIMEOUT", "Operation timed out, please retry later")
	ErrPersistence         = NewDomainError(KindPersistence, "PERSISTENCE_ERROR", "Storage failure, please retry later")
)
