// Package apperrors defines the typed error kinds used across the
// simulation core, per the error-handling design in spec.md §7.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by its disposition, per spec.md §7.
type Kind string

const (
	// KindValidation marks a rejected-at-the-boundary input: bad
	// coordinate, bad config value, bad command argument.
	KindValidation Kind = "validation"
	// KindOperational marks a handled-locally failure that does not
	// abort the simulation: a failed pick, an invalid mid-execution path.
	KindOperational Kind = "operational"
	// KindInvariant marks a programming-error invariant violation: an
	// order with no items, held_items over max, a status regression.
	KindInvariant Kind = "invariant"
	// KindHandler marks an isolated handler/middleware panic or error.
	KindHandler Kind = "handler"
	// KindSaturation marks an explicit resource-saturation rejection,
	// e.g. the order queue being full.
	KindSaturation Kind = "saturation"
)

// Error is a typed error carrying a Kind and a stable Code for callers
// that want to branch without string matching, plus an optional wrapped
// cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is comparisons on Kind+Code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && e.Code == other.Code
}

func new(kind Kind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// Validation constructs a KindValidation error.
func Validation(code, msg string) *Error { return new(KindValidation, code, msg, nil) }

// Validationf constructs a KindValidation error with a formatted message.
func Validationf(code, format string, args ...any) *Error {
	return new(KindValidation, code, fmt.Sprintf(format, args...), nil)
}

// Operational constructs a KindOperational error.
func Operational(code, msg string) *Error { return new(KindOperational, code, msg, nil) }

// Invariant constructs a KindInvariant error.
func Invariant(code, msg string) *Error { return new(KindInvariant, code, msg, nil) }

// Handler wraps a recovered handler/middleware failure.
func Handler(code string, cause error) *Error {
	return new(KindHandler, code, "handler failed", cause)
}

// Saturation constructs a KindSaturation error.
func Saturation(code, msg string) *Error { return new(KindSaturation, code, msg, nil) }

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
