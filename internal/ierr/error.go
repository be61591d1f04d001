package ierr

import "encoding/json"

type ErrorCode string

const (
	// Transport covers connection-level failures the reconnect loop
	// recovers from on its own.
	ErrorCodeTransport    ErrorCode = "Transport"
	ErrorCodeTimeout      ErrorCode = "Timeout"
	ErrorCodeNotConnected ErrorCode = "NotConnected"

	// Request covers non-2xx responses and malformed response bodies.
	ErrorCodeRequest ErrorCode = "Request"

	// Validation covers checks that block a submission before it is sent.
	ErrorCodeValidation ErrorCode = "Validation"

	ErrorCodeInternal ErrorCode = "Internal"
)

type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	cause error
}

func New(code ErrorCode, cause error) Error {
	return Error{
		Code:    code,
		Message: cause.Error(),
		cause:   cause,
	}
}

func (e Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e Error) Unwrap() error {
	return e.cause
}
