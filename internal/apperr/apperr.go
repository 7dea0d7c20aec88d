// Package apperr defines the error taxonomy shared by the core, the services
// and the command boundary. Errors carry a Kind so callers can tell expected
// user mistakes apart from upstream failures without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and rendering.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInvalidInput        Kind = "invalid_input"
	KindGroupCreateFailed   Kind = "group_create_failed"
	KindRateLimitedSkip     Kind = "rate_limited_skip"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrGroupCreateFailed   = &Error{Kind: KindGroupCreateFailed}
	ErrRateLimitedSkip     = &Error{Kind: KindRateLimitedSkip}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
)

// Error is a classified error. Op names the operation that failed and Message
// is the user-facing text, if any.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// New builds a classified error with a user-facing message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. Returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound is shorthand for New(KindNotFound, ...).
func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

// Forbidden is shorthand for New(KindForbidden, ...).
func Forbidden(op, format string, args ...any) *Error {
	return New(KindForbidden, op, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when err
// is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the text to show a participant for err, and whether the
// error is one participants can act on themselves. Unclassified errors and
// upstream failures return false; they are logged and answered generically.
func UserMessage(err error) (string, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	switch e.Kind {
	case KindNotFound, KindForbidden, KindInvalidTransition, KindInvalidInput:
		if e.Message != "" {
			return e.Message, true
		}
		return string(e.Kind), true
	default:
		return "", false
	}
}
