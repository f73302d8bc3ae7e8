// Package errors provides structured error types for the colgroup system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryStream     ErrorCategory = "STREAM"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryConfig     ErrorCategory = "CONFIG"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidRange     = "INVALID_RANGE"
	CodeEmptyGroupCount  = "EMPTY_GROUP_COUNT"
	CodeEmptySchema      = "EMPTY_SCHEMA"
	CodeEmptyRanges      = "EMPTY_RANGES"
	CodeRangeOutOfBounds = "RANGE_OUT_OF_BOUNDS"
	CodeRangeOverlap     = "RANGE_OVERLAP"
	CodeMissingHeaders   = "MISSING_HEADERS"

	// Stream codes
	CodeStreamError  = "STREAM_ERROR"
	CodeStreamBusy   = "STREAM_BUSY"
	CodeIteratorDone = "ITERATOR_DONE"

	// Storage codes
	CodeDownloadFailed    = "DOWNLOAD_FAILED"
	CodeObjectNotFound    = "OBJECT_NOT_FOUND"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// ColgroupError is the structured error type used throughout the system.
type ColgroupError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *ColgroupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ColgroupError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *ColgroupError) Is(target error) bool {
	var t *ColgroupError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new ColgroupError.
func New(category ErrorCategory, code, message string) *ColgroupError {
	return &ColgroupError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new ColgroupError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *ColgroupError {
	return &ColgroupError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *ColgroupError) WithDetails(details map[string]interface{}) *ColgroupError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ce *ColgroupError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a ColgroupError.
func GetCategory(err error) ErrorCategory {
	var ce *ColgroupError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a ColgroupError.
func GetCode(err error) string {
	var ce *ColgroupError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// isRetryable reports whether a category/code pair may succeed on retry.
// Stream failures are terminal for the producer that saw them.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *ColgroupError {
	return New(ErrCategoryValidation, code, message)
}

func NewStreamError(message string, cause error) *ColgroupError {
	return Wrap(ErrCategoryStream, CodeStreamError, message, cause)
}

func NewStorageError(code, message string, cause error) *ColgroupError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewConfigError(message string) *ColgroupError {
	return New(ErrCategoryConfig, CodeInvalidConfig, message)
}

func NewInternalError(message string, cause error) *ColgroupError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
