package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Stream lifecycle and flow-control errors
const (
	// ErrCodeStreamCompleted indicates an operation on a stream that already completed.
	ErrCodeStreamCompleted ErrorCode = "STREAM_COMPLETED"
	// ErrCodeStreamClosed indicates the stream's consumer has been shut down.
	ErrCodeStreamClosed ErrorCode = "STREAM_CLOSED"
	// ErrCodeBackpressure indicates a bounded buffer stayed full past its offer timeout.
	ErrCodeBackpressure ErrorCode = "BACKPRESSURE"
	// ErrCodePanic indicates a user callback panicked and the panic was recovered.
	ErrCodePanic ErrorCode = "PANIC"
)

// Retry errors
const (
	// ErrCodeRetryExhausted indicates every retry attempt failed.
	ErrCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeBackpressure: true,
	ErrCodeTimeout:      true,
	ErrCodeInternal:     false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
