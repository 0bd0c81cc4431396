// Package apperr models the error kinds named in the error handling
// design: TransportError, NotFound, TenantDenied, IntegrityViolation,
// ValidationError, DegradedRead, and Fatal. Callers compare kinds with
// errors.Is against the exported sentinels; the HTTP layer is the only
// place that maps a Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories the propagation policy cares
// about.
type Kind string

const (
	KindTransport          Kind = "transport"
	KindNotFound           Kind = "not_found"
	KindTenantDenied       Kind = "tenant_denied"
	KindIntegrityViolation Kind = "integrity_violation"
	KindValidation         Kind = "validation"
	KindDegradedRead       Kind = "degraded_read"
	KindFatal              Kind = "fatal"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// category without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.NotFound) match any *Error of the same
// Kind regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel constructors — each a *Error whose Kind errors.Is compares
// against. Use New(KindX, ...) to wrap a cause under the same kind.

var (
	NotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	TenantDenied  = &Error{Kind: KindTenantDenied, Message: "tenant denied"}
	Integrity     = &Error{Kind: KindIntegrityViolation, Message: "integrity violation"}
	Validation    = &Error{Kind: KindValidation, Message: "validation error"}
	DegradedRead  = &Error{Kind: KindDegradedRead, Message: "degraded read"}
	Fatal         = &Error{Kind: KindFatal, Message: "fatal"}
	Transport     = &Error{Kind: KindTransport, Message: "transport error"}
)

// New builds an *Error of the given kind wrapping err with additional
// context.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Wrap is a convenience for New(kind, msg, err) that returns nil when
// err is nil, so it can sit directly in a `return apperr.Wrap(...)`
// statement.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, msg, err)
}

// Is is a thin alias over errors.Is for call sites that prefer not to
// import both packages.
func Is(err error, sentinel *Error) bool {
	return errors.Is(err, sentinel)
}
