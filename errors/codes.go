package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Bootstrap lifecycle errors
const (
	// ErrCodeInitialization indicates the container could not be constructed.
	ErrCodeInitialization ErrorCode = "INITIALIZATION_FAILED"
	// ErrCodeWiring indicates the post-initialization liveness check failed.
	ErrCodeWiring ErrorCode = "WIRING_FAILED"
	// ErrCodeCallback indicates the ready callback returned an error or panicked.
	ErrCodeCallback ErrorCode = "CALLBACK_FAILED"
)

// Container errors
const (
	// ErrCodeNotRegistered indicates no component is registered under a key.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	// ErrCodeContainerClosed indicates the container was used after Close.
	ErrCodeContainerClosed ErrorCode = "CONTAINER_CLOSED"
	// ErrCodeAlreadyInitialized indicates an initializer was used twice.
	ErrCodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
)

// Configuration and internal errors
const (
	// ErrCodeConfigInvalid indicates configuration failed to load or validate.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Process exit statuses. 1 is reserved for errors that are not AppErrors.
const (
	ExitOK             = 0
	ExitUnknown        = 1
	ExitConfig         = 64
	ExitInitialization = 70
	ExitWiring         = 71
	ExitCallback       = 72
	ExitInternal       = 73
)

var exitCodes = map[ErrorCode]int{
	ErrCodeInitialization:     ExitInitialization,
	ErrCodeWiring:             ExitWiring,
	ErrCodeCallback:           ExitCallback,
	ErrCodeNotRegistered:      ExitWiring,
	ErrCodeContainerClosed:    ExitInternal,
	ErrCodeAlreadyInitialized: ExitInitialization,
	ErrCodeConfigInvalid:      ExitConfig,
	ErrCodeInternal:           ExitInternal,
}

// ExitCodeForCode returns the process exit status for an error code.
func ExitCodeForCode(code ErrorCode) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitUnknown
}
