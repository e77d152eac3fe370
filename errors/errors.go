package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// ExitCode is the recommended process exit status for this error.
	ExitCode int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with the exit status derived from the code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: ExitCodeForCode(code),
	}
}

// --- Bootstrap lifecycle constructors ---

// InitializationFailed creates an AppError for a container that could not be built.
func InitializationFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInitialization, Message: "container initialization failed",
		ExitCode: ExitInitialization, Cause: cause,
	}
}

// WiringFailed creates an AppError for a liveness check that could not resolve
// the marker component.
func WiringFailed(marker string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeWiring, Message: fmt.Sprintf("marker component %s could not be resolved", marker),
		ExitCode: ExitWiring, Cause: cause,
		Details: map[string]any{"marker": marker},
	}
}

// CallbackFailed creates an AppError for a ready callback that failed.
func CallbackFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeCallback, Message: "ready callback failed",
		ExitCode: ExitCallback, Cause: cause,
	}
}

// --- Container constructors ---

// NotRegistered creates an AppError for a key with no registration.
func NotRegistered(key string) *AppError {
	return &AppError{
		Code: ErrCodeNotRegistered, Message: fmt.Sprintf("component not registered: %s", key),
		ExitCode: ExitWiring,
		Details:  map[string]any{"key": key},
	}
}

// ContainerClosed creates an AppError for an operation on a closed container.
func ContainerClosed(operation string) *AppError {
	return &AppError{
		Code: ErrCodeContainerClosed, Message: fmt.Sprintf("container closed: cannot %s", operation),
		ExitCode: ExitInternal,
		Details:  map[string]any{"operation": operation},
	}
}

// AlreadyInitialized creates an AppError for an initializer used more than once.
func AlreadyInitialized() *AppError {
	return &AppError{
		Code: ErrCodeAlreadyInitialized, Message: "initializer has already been used",
		ExitCode: ExitInitialization,
	}
}

// --- Configuration and internal constructors ---

// ConfigInvalid creates an AppError for configuration that failed to load or validate.
func ConfigInvalid(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConfigInvalid, Message: reason,
		ExitCode: ExitConfig,
	}
}

// Validation creates an AppError for struct validation errors.
func Validation(message string) *AppError {
	return ConfigInvalid(message)
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		ExitCode: ExitInternal, Cause: cause,
	}
}

// --- Inspection helpers ---

// IsCode reports whether any AppError in err's chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Wrap converts any error into an AppError. AppErrors anywhere in the chain
// are returned as-is; other errors become Internal with the original as cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// ExitCodeFor returns the process exit status for err: ExitOK for nil, the
// outermost AppError's ExitCode, or ExitUnknown for any other error.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if appErr, ok := AsAppError(err); ok && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return ExitUnknown
}
