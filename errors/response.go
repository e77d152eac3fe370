package errors

import (
	stderrors "errors"
)

// ErrorReport is the JSON structure the CLI writes to stderr on failure.
type ErrorReport struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the reported error details.
type ErrorBody struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Cause    string                 `json:"cause,omitempty"`
	ExitCode int                    `json:"exit_code"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// ToReport converts an AppError to an ErrorReport for JSON serialization.
func (e *AppError) ToReport() ErrorReport {
	body := ErrorBody{
		Code:     e.Code,
		Message:  e.Message,
		ExitCode: e.ExitCode,
		Details:  e.Details,
	}
	if e.Cause != nil {
		body.Cause = e.Cause.Error()
	}
	return ErrorReport{Error: body}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
