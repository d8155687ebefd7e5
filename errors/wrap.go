package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already an *Error, the wrapper keeps its code and category.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var hostErr *Error
	if errors.As(err, &hostErr) {
		wrapped := &Error{
			code:      hostErr.code,
			category:  hostErr.category,
			message:   message,
			cause:     err,
			metadata:  hostErr.Metadata(),
			timestamp: hostErr.timestamp,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsHostError extracts a HostError from an error chain.
// Returns nil if no HostError is found.
func AsHostError(err error) HostError {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr.category == category
	}
	return false
}

// IsFatal checks if the error ends the process.
func IsFatal(err error) bool {
	return IsCategory(err, CategoryFatal)
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a HostError.
func Code(err error) ErrorCode {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
func Category(err error) ErrorCategory {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr.category
	}
	return ""
}

// GetMetadata extracts metadata from an error.
// Returns nil if err is not a HostError.
func GetMetadata(err error) map[string]string {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr.Metadata()
	}
	return nil
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Join combines multiple errors into a single error.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	var opts []Option
	switch v := recovered.(type) {
	case error:
		message = v.Error()
		opts = append(opts, WithCause(v))
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	opts = append(opts, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
	return New(ErrCodePanic, message, opts...)
}

// ExitCode maps an error to a process exit code: 0 for nil, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
