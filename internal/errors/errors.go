package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// SiloError is the structured error type for silo.
// It carries enough context to log, classify and present a failure.
type SiloError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from Code.
	Category Category

	// Severity is derived from Code.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SiloError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SiloError) Unwrap() error {
	return e.Cause
}

// Is matches another SiloError by code so errors.Is works against sentinels.
func (e *SiloError) Is(target error) bool {
	if t, ok := target.(*SiloError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SiloError) WithDetail(key, value string) *SiloError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SiloError) WithSuggestion(suggestion string) *SiloError {
	e.Suggestion = suggestion
	return e
}

// New creates a SiloError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SiloError {
	return &SiloError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SiloError from an existing error, reusing its message.
func Wrap(code string, err error) *SiloError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *SiloError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a filesystem error. Missing files and permission
// failures get their own codes.
func IOError(message string, cause error) *SiloError {
	code := ErrCodeReadFailed
	switch {
	case errors.Is(cause, fs.ErrNotExist):
		code = ErrCodeFileNotFound
	case errors.Is(cause, fs.ErrPermission):
		code = ErrCodeFilePermission
	}
	return New(code, message, cause)
}

// ExtractionError creates a text extraction error.
func ExtractionError(message string, cause error) *SiloError {
	return New(ErrCodeExtractExit, message, cause)
}

// EmbeddingError creates an embedding backend error.
func EmbeddingError(message string, cause error) *SiloError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// StorageError creates a persistence error.
func StorageError(message string, cause error) *SiloError {
	return New(ErrCodeStorageWrite, message, cause)
}

// Unsupported creates an error for an operation against a disabled component.
func Unsupported(message string) *SiloError {
	return New(ErrCodeStoreDisabled, message, nil)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *SiloError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable reports whether any SiloError in the chain is retryable.
func IsRetryable(err error) bool {
	var se *SiloError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCode extracts the error code from the first SiloError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *SiloError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from the first SiloError in the chain.
func GetCategory(err error) Category {
	var se *SiloError
	if errors.As(err, &se) {
		return se.Category
	}
	return CategoryInternal
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, c Category) bool {
	var se *SiloError
	return errors.As(err, &se) && se.Category == c
}
