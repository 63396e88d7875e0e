// Package domainerrors provides coded errors for the domain layer.
//
// Services attach a Code to every error they return so transports can map
// failures to user-facing outcomes without string matching, and so expected
// rejections (precondition violations, wrong state) stay distinguishable from
// real faults. Stores return pkg/platform/sentinel errors; services translate
// them into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks structurally invalid input that slipped past the
	// pre-filter (bad public-id shape, out-of-range rating).
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed primitives at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks requests that are well-formed but unusable.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound covers both "does not exist" and "not yours" — ownership
	// mismatches are deliberately indistinguishable from absence.
	CodeNotFound Code = "not_found"
	// CodeConflict marks lost optimistic updates and duplicate submissions:
	// the caller should re-read current state, not retry blindly.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks precondition failures that are expected,
	// user-facing outcomes (already employed, attempt limit reached,
	// appeal window expired).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks authenticated callers lacking permission.
	CodeForbidden Code = "forbidden"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a human-readable reason. The message is what
// the caller renders to the user, so it must say why: "appeal window expired",
// not "operation failed".
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted reason.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is for call sites that alias this package.
func Is(err, target error) bool { return errors.Is(err, target) }
