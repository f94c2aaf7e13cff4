package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable failure class. Every failure surfaced by the
// engine carries exactly one kind plus a human-readable reason.
type Kind string

const (
	// KindDataUnavailable marks missing or short price history (null ATR,
	// short SMA window). Sizing is refused and signals omitted, never
	// defaulted.
	KindDataUnavailable Kind = "DATA_UNAVAILABLE"
	// KindValidation marks malformed or out-of-range inputs.
	KindValidation Kind = "VALIDATION"
	// KindConflict marks a batch run already active or a pyramid cap breach.
	KindConflict Kind = "CONFLICT"
	// KindSystem marks infrastructure failure (storage unreachable).
	KindSystem Kind = "SYSTEM"
)

// Error is a kind-tagged error. Params carry structured detail the caller
// can act on, e.g. the maximum permitted add-up size on a pyramid rejection.
type Error struct {
	Kind   Kind
	Reason string
	Params map[string]interface{}
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// WithParam attaches one structured detail.
func (e *Error) WithParam(key string, value interface{}) *Error {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying cause.
func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

func DataUnavailable(format string, a ...interface{}) *Error {
	return &Error{Kind: KindDataUnavailable, Reason: fmt.Sprintf(format, a...)}
}

func Validation(format string, a ...interface{}) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, a...)}
}

func Conflict(format string, a ...interface{}) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, a...)}
}

func System(format string, a ...interface{}) *Error {
	return &Error{Kind: KindSystem, Reason: fmt.Sprintf(format, a...)}
}

// KindOf extracts the kind of err, or KindSystem when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
