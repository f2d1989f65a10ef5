// Package errors provides structured error handling for silo.
//
// Error codes follow the pattern ERR_XYY_DESCRIPTION where the leading
// digit selects the category:
//   - 1XX: Configuration errors (invalid glob, invalid config)
//   - 2XX: IO errors (stat, read, read_dir)
//   - 3XX: Extraction errors (decode, converter process)
//   - 4XX: Embedding errors (backend failure, cardinality)
//   - 5XX: Storage errors (persistence backend)
//   - 6XX: Unsupported operations (component disabled)
//   - 7XX: Validation errors (rejected tool input)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration or policy errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates filesystem access errors.
	CategoryIO Category = "IO"
	// CategoryExtraction indicates text extraction errors.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryEmbedding indicates embedding backend errors.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryStorage indicates persistence backend errors.
	CategoryStorage Category = "STORAGE"
	// CategoryUnsupported indicates an operation against a disabled component.
	CategoryUnsupported Category = "UNSUPPORTED"
	// CategoryValidation indicates rejected input.
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
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeInvalidGlob    = "ERR_102_INVALID_GLOB"
	ErrCodeConfigNotFound = "ERR_103_CONFIG_NOT_FOUND"
	ErrCodeNoRoots        = "ERR_104_NO_ROOTS"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeReadFailed     = "ERR_203_READ_FAILED"
	ErrCodeStatFailed     = "ERR_204_STAT_FAILED"

	// Extraction errors (300-399)
	ErrCodeExtractStart  = "ERR_301_EXTRACT_START"
	ErrCodeExtractExit   = "ERR_302_EXTRACT_EXIT"
	ErrCodeExtractDecode = "ERR_303_EXTRACT_DECODE"

	// Embedding errors (400-499)
	ErrCodeEmbeddingFailed    = "ERR_401_EMBEDDING_FAILED"
	ErrCodeCardinality        = "ERR_402_EMBEDDING_CARDINALITY"
	ErrCodeEmbeddingTimeout   = "ERR_403_EMBEDDING_TIMEOUT"
	ErrCodeEmbeddingInit      = "ERR_404_EMBEDDING_INIT"
	ErrCodeBackendUnavailable = "ERR_405_BACKEND_UNAVAILABLE"

	// Storage errors (500-599)
	ErrCodeStorageOpen       = "ERR_501_STORAGE_OPEN"
	ErrCodeStorageWrite      = "ERR_502_STORAGE_WRITE"
	ErrCodeStorageQuery      = "ERR_503_STORAGE_QUERY"
	ErrCodeDimensionMismatch = "ERR_504_DIMENSION_MISMATCH"
	ErrCodeCorruptIndex      = "ERR_505_CORRUPT_INDEX"
	ErrCodeStoreLocked       = "ERR_506_STORE_LOCKED"

	// Unsupported operations (600-699)
	ErrCodeStoreDisabled    = "ERR_601_STORE_DISABLED"
	ErrCodeEmbedderDisabled = "ERR_602_EMBEDDER_DISABLED"

	// Validation errors (700-799)
	ErrCodeInvalidInput = "ERR_701_INVALID_INPUT"
	ErrCodeInvalidPath  = "ERR_702_INVALID_PATH"
	ErrCodeQueryEmpty   = "ERR_703_QUERY_EMPTY"
	ErrCodeRejected     = "ERR_704_REJECTED_BY_POLICY"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "1" from "ERR_101_CONFIG_INVALID"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryExtraction
	case '4':
		return CategoryEmbedding
	case '5':
		return CategoryStorage
	case '6':
		return CategoryUnsupported
	case '7':
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

	if isRetryableCode(code) || categoryFromCode(code) == CategoryUnsupported {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingTimeout, ErrCodeBackendUnavailable:
		return true
	default:
		return false
	}
}
