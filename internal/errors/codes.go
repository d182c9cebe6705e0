// Package errors provides structured error handling for indexhub.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index lifecycle errors (registry, leases, writers)
//   - 3XX: Store errors (collaborator I/O)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryLifecycle indicates index registry and lease errors.
	CategoryLifecycle Category = "LIFECYCLE"
	// CategoryStore indicates I/O failures from the index store collaborator.
	CategoryStore Category = "STORE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Lifecycle errors (200-299)
	ErrCodeUnknownIndex = "ERR_201_UNKNOWN_INDEX"
	ErrCodeBusy         = "ERR_202_WRITER_BUSY"
	ErrCodeClosed       = "ERR_203_MANAGER_CLOSED"
	ErrCodeStaleLease   = "ERR_204_STALE_LEASE"

	// Store errors (300-399)
	ErrCodeStore        = "ERR_301_STORE"
	ErrCodeCorruptIndex = "ERR_302_CORRUPT_INDEX"

	// Validation errors (400-499)
	ErrCodeInvalidArgument = "ERR_401_INVALID_ARGUMENT"
	ErrCodeParseFailed     = "ERR_402_PARSE_FAILED"

	// Internal errors (500-599)
	ErrCodeInternal  = "ERR_501_INTERNAL"
	ErrCodeJobFailed = "ERR_502_JOB_FAILED"
	ErrCodeCancelled = "ERR_503_CANCELLED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryLifecycle
	case '3':
		return CategoryStore
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	}

	// Retryable store errors get warning severity: the job worker will
	// try again before anything reaches a listener.
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStore:
		return true
	default:
		return false
	}
}
