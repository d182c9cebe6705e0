package errors

import (
	"errors"
	"fmt"
)

// IndexError is the structured error type for indexhub.
// It provides context for error handling, logging, and listener reporting.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_201_UNKNOWN_INDEX").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Lifecycle, Store, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with IndexError.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new IndexError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an IndexError from an existing error.
// The error's message becomes the IndexError message.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// UnknownIndex creates an error for an operation on an unregistered index.
func UnknownIndex(index string) *IndexError {
	return New(ErrCodeUnknownIndex, fmt.Sprintf("index %q is not registered", index), nil).
		WithDetail("index", index)
}

// Busy creates an error for writer contention on a non-blocking grab.
func Busy(index string) *IndexError {
	return New(ErrCodeBusy, fmt.Sprintf("writer for index %q is in use", index), nil).
		WithDetail("index", index)
}

// InvalidArgument creates a validation error.
func InvalidArgument(message string) *IndexError {
	return New(ErrCodeInvalidArgument, message, nil)
}

// StoreError wraps an I/O failure from the index store collaborator.
// Store errors are retryable by the job worker.
func StoreError(message string, cause error) *IndexError {
	return New(ErrCodeStore, message, cause)
}

// JobFailed creates a terminal error for a job whose retry budget is exhausted.
func JobFailed(message string, cause error) *IndexError {
	return New(ErrCodeJobFailed, message, cause)
}

// Cancelled creates an error for a job abandoned before it ran.
func Cancelled(message string) *IndexError {
	return New(ErrCodeCancelled, message, nil)
}

// IsRetryable checks if an error is retryable.
// It walks the error chain looking for an IndexError with the flag set.
func IsRetryable(err error) bool {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an IndexError.
// Returns empty string if not an IndexError.
func GetCode(err error) string {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// GetCategory extracts the category from an IndexError.
// Returns empty string if not an IndexError.
func GetCategory(err error) Category {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Category
	}
	return ""
}
