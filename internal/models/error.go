package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so the transport layer can map them.
type ErrorKind string

const (
	KindValidationFailed  ErrorKind = "VALIDATION_FAILED"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindUnavailable       ErrorKind = "UNAVAILABLE"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindConflict          ErrorKind = "CONFLICT"
)

// DomainError is a failure the caller is expected to act on.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
	// Fields maps request fields to the reason they were rejected. Only set
	// for validation failures.
	Fields map[string]string
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same kind, so sentinel values below work
// with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewDomainError creates a new domain error.
func NewDomainError(kind ErrorKind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports rejected request fields.
func NewValidationError(fields map[string]string) *DomainError {
	return &DomainError{Kind: KindValidationFailed, Message: "Validation failed", Fields: fields}
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidationFailed  = &DomainError{Kind: KindValidationFailed, Message: "validation failed"}
	ErrNotFound          = &DomainError{Kind: KindNotFound, Message: "not found"}
	ErrUnavailable       = &DomainError{Kind: KindUnavailable, Message: "unavailable"}
	ErrInsufficientStock = &DomainError{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrForbidden         = &DomainError{Kind: KindForbidden, Message: "forbidden"}
	ErrUnauthorized      = &DomainError{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrConflict          = &DomainError{Kind: KindConflict, Message: "conflict"}
)

// KindOf returns the kind of the first DomainError in err's chain, or "" for
// unexpected failures.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
