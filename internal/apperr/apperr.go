// Package apperr defines the service-level error taxonomy with the HTTP
// status each code maps to.
package apperr

import "fmt"

type Code string

const (
	CodeBlockedHost        Code = "BLOCKED_HOST"        // 400
	CodeResolution         Code = "DNS_LOOKUP_FAILED"   // 400
	CodeInvalidRequest     Code = "INVALID_REQUEST"     // 400
	CodeNotFound           Code = "NOT_FOUND"           // 404
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"   // 413
	CodeUnsupportedContent Code = "UNSUPPORTED_CONTENT" // 415
	CodeFetchFailed        Code = "FETCH_FAILED"        // 502
	CodeInternal           Code = "INTERNAL"            // 500
)

// Error is a structured service error.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, status int, message string, err error) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

func InvalidRequest(message string) *Error {
	return New(CodeInvalidRequest, 400, message, nil)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, 404, message, nil)
}

func Internal(err error) *Error {
	return New(CodeInternal, 500, "internal error", err)
}
