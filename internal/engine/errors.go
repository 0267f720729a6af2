package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a failure observed by the Run loop or an effect.
// Neither kind stops the loop: the error is logged, attached to the
// Transition (reducer failures) or the request status (effect failures),
// and processing continues.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the transition the error belongs to, 0 for effect failures.
	Seq int64

	// Action or event type that failed.
	Op string

	// Cause is the underlying error.
	Cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeReduceFailed indicates the reducer rejected an action,
	// currently only on a content conflict.
	ErrCodeReduceFailed RuntimeErrorCode = "REDUCE_FAILED"

	// ErrCodeEffectFailed indicates a backend or storage call failed.
	ErrCodeEffectFailed RuntimeErrorCode = "EFFECT_FAILED"

	// ErrCodeStopped indicates the engine no longer accepts actions.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"
)

func (e *RuntimeError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (seq=%d, op=%s)", e.Code, e.Message, e.Seq, e.Op)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// IsReduceError reports whether err is a reducer failure.
func IsReduceError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeReduceFailed
	}
	return false
}

// IsEffectError reports whether err is an effect failure.
func IsEffectError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEffectFailed
	}
	return false
}

func newReduceError(seq int64, op string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReduceFailed,
		Message: cause.Error(),
		Seq:     seq,
		Op:      op,
		Cause:   cause,
	}
}

func newEffectError(op string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeEffectFailed,
		Message: cause.Error(),
		Op:      op,
		Cause:   cause,
	}
}
