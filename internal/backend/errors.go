package backend

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeRequestFailed = "REQUEST_FAILED"
	ErrCodeHTTPStatus    = "HTTP_STATUS"
	ErrCodeDecodeFailed  = "DECODE_FAILED"
	ErrCodeNotFound      = "NOT_FOUND"
)

// Error is a failed backend call.
type Error struct {
	Code       string
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %d: %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the code of a backend *Error in err's chain, or "".
func ErrorCode(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
