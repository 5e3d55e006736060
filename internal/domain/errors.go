package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message, so wrapped copies
// created with NewDomainErrorWithCause still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeNotImplemented = "NOT_IMPLEMENTED"
)

// Validation errors
var (
	ErrMissingFile = NewDomainError(ErrCodeValidation, "file is required")
	ErrEmptyText   = NewDomainError(ErrCodeValidation, "text cannot be empty")
)

// Document errors. An unreadable upload is a server-side failure (500), not a
// validation error.
var (
	ErrEmptyDocument   = NewDomainError(ErrCodeInternalError, "document is empty")
	ErrInvalidDocument = NewDomainError(ErrCodeInternalError, "document could not be parsed")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not indexed")
)

// Configuration errors
var (
	ErrArchiveNotConfigured   = NewDomainError(ErrCodeNotImplemented, "document archive not configured: S3_ENDPOINT required")
	ErrWebSearchNotConfigured = NewDomainError(ErrCodeNotImplemented, "web search not configured: EXA_API_KEY required")
)
