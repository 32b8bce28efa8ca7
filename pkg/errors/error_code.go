package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeConfigValidation ErrorCode = 100
	ErrCodeInvalidRequest   ErrorCode = 101
	ErrCodeVersionMismatch  ErrorCode = 102

	// Transport errors (500-599)
	ErrCodeTransport    ErrorCode = 500
	ErrCodeNotConnected ErrorCode = 501
	ErrCodeTradeFailed  ErrorCode = 502

	// Queue errors (600-699)
	ErrCodeQueueFull    ErrorCode = 600
	ErrCodeQueueStopped ErrorCode = 601
	ErrCodeTimeout      ErrorCode = 602

	// Connection lifecycle errors (700-799)
	ErrCodeReconnectExhausted ErrorCode = 700

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:            "UnknownError",
	ErrCodeConfigValidation:   "ConfigValidationError",
	ErrCodeInvalidRequest:     "InvalidRequestError",
	ErrCodeVersionMismatch:    "VersionMismatchError",
	ErrCodeTransport:          "TransportError",
	ErrCodeNotConnected:       "TransportError",
	ErrCodeTradeFailed:        "TransportError",
	ErrCodeQueueFull:          "QueueFullError",
	ErrCodeQueueStopped:       "QueueStoppedError",
	ErrCodeTimeout:            "TimeoutError",
	ErrCodeReconnectExhausted: "ReconnectExhaustedError",
	ErrCodeCallbackFailed:     "CallbackError",
}

// String returns the taxonomy name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return codeNames[ErrCodeUnknown]
}
