package types

import "fmt"

// ErrorCode represents a unified error code across the bridge.
type ErrorCode string

// Adapter error codes
const (
	ErrNoTranscript    ErrorCode = "NO_TRANSCRIPT"
	ErrReplyGeneration ErrorCode = "REPLY_GENERATION"
	ErrSynthesis       ErrorCode = "SYNTHESIS"
	ErrAuthentication  ErrorCode = "AUTHENTICATION"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrTimeout         ErrorCode = "TIMEOUT"
)

// Session error codes
const (
	ErrDuplicateCall  ErrorCode = "DUPLICATE_CALL"
	ErrSessionClosed  ErrorCode = "SESSION_CLOSED"
	ErrMalformedEvent ErrorCode = "MALFORMED_EVENT"
	ErrAtCapacity     ErrorCode = "AT_CAPACITY"
	ErrInvalidAudio   ErrorCode = "INVALID_AUDIO"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	CallID    string    `json:"call_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithCallID tags the error with the owning call identifier.
func (e *Error) WithCallID(callID string) *Error {
	e.CallID = callID
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
