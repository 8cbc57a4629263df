// Package apperr carries caller-facing errors with a machine-readable kind.
package apperr

import "errors"

type Kind string

const (
	KindInvalidWager          Kind = "InvalidWager"
	KindRoundNotReady         Kind = "RoundNotReady"
	KindPartnerCascadeFailure Kind = "PartnerCascadeFailure"
	KindGeneratorFailure      Kind = "GeneratorFailure"
	KindInvalidRequest        Kind = "InvalidRequest"
	KindInsufficientFunds     Kind = "InsufficientFunds"
	KindNotFound              Kind = "NotFound"
	KindUnauthorized          Kind = "Unauthorized"
	KindForbidden             Kind = "Forbidden"
	KindConflict              Kind = "Conflict"
	KindInternal              Kind = "Internal"
)

// Error is matched by kind through errors.Is, so a sentinel built with New
// matches any error of the same kind regardless of message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Public returns the message safe to show to a caller. Internal errors are
// reduced to a generic text.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "internal server error"
}
