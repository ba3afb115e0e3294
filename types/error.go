package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Solver pipeline error codes
const (
	ErrAuthentication ErrorCode = "AUTHENTICATION" // credential mismatch, fatal, no retry
	ErrFetchTimeout   ErrorCode = "FETCH_TIMEOUT"  // page render exceeded its bound
	ErrFetch          ErrorCode = "FETCH"          // navigation/network failure
	ErrInterpretation ErrorCode = "INTERPRETATION" // malformed LLM task description
	ErrDataFetch      ErrorCode = "DATA_FETCH"     // data artifact download failure
	ErrComputation    ErrorCode = "COMPUTATION"    // malformed LLM answer
	ErrShapeMismatch  ErrorCode = "SHAPE_MISMATCH" // answer failed local shape validation
	ErrSubmission     ErrorCode = "SUBMISSION"     // answer POST failed after retries
	ErrTimeout        ErrorCode = "TIMEOUT"        // global run deadline exceeded
)

// API / transport error codes
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Step       string    `json:"step,omitempty"`
	Cause      error     `json:"-"`
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

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithStep records the pipeline step the error originated from.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
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
