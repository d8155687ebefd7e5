package errors

// ErrorCategory classifies errors by how the host reacts to them.
type ErrorCategory string

// Error categories.
const (
	// CategoryFatal indicates the process cannot continue and must drain
	// and exit with a nonzero status.
	// Examples: explicit fatal errors, intercepted signals, lost cleanup capacity.
	CategoryFatal ErrorCategory = "fatal"

	// CategoryConfig indicates a rejected configuration or input value,
	// reported before the run loop starts.
	// Examples: tic rate out of range, unknown log level.
	CategoryConfig ErrorCategory = "config"

	// CategoryInternal indicates unexpected errors or bugs.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsFatal returns true if errors in this category end the process.
func (c ErrorCategory) IsFatal() bool {
	return c == CategoryFatal
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes.
const (
	// Fatal errors
	ErrCodeFatal        ErrorCode = "FATAL"        // Unrecoverable application error
	ErrCodeSignal       ErrorCode = "SIGNAL"       // Fatal OS signal intercepted
	ErrCodeRegistration ErrorCode = "REGISTRATION" // Exit action could not be registered
	ErrCodePanic        ErrorCode = "PANIC"        // Recovered from panic

	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG" // Configuration rejected
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"  // Malformed or invalid input
	ErrCodeUnsupported   ErrorCode = "UNSUPPORTED"    // Operation or format not supported

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeFatal, ErrCodeSignal, ErrCodeRegistration, ErrCodePanic:
		return CategoryFatal
	case ErrCodeInvalidConfig, ErrCodeInvalidInput, ErrCodeUnsupported:
		return CategoryConfig
	default:
		return CategoryInternal
	}
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeFatal:         "fatal error",
	ErrCodeSignal:        "terminated by signal",
	ErrCodeRegistration:  "exit action registration failed",
	ErrCodePanic:         "recovered from panic",
	ErrCodeInvalidConfig: "invalid configuration",
	ErrCodeInvalidInput:  "invalid input provided",
	ErrCodeUnsupported:   "operation not supported",
	ErrCodeInternal:      "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
