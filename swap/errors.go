package swap

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories surfaced at the engine
// boundary. Every failed operation maps to exactly one kind.
type Kind uint8

const (
	// KindInternal marks an unexpected failure, e.g. a storage error.
	KindInternal Kind = iota

	// KindNotFound is returned when an HTLC, order, fill or resolver does
	// not exist.
	KindNotFound

	// KindInvalidInput covers non-positive amounts, malformed hashes or
	// secrets and bad expirations.
	KindInvalidInput

	// KindUnauthorized is returned when the caller is not the party that
	// is allowed to perform the operation.
	KindUnauthorized

	// KindAlreadyFinalized is returned on an attempt to transition an
	// entity out of a terminal state.
	KindAlreadyFinalized

	// KindOrderAlreadyMatched is returned when an order has already been
	// taken.
	KindOrderAlreadyMatched

	// KindExpired is returned when a timelock has already elapsed.
	KindExpired

	// KindNotYetExpired is returned when a timelock has not elapsed yet.
	KindNotYetExpired

	// KindSecretMismatch is returned when a secret does not hash to the
	// expected commitment.
	KindSecretMismatch

	// KindInvalidSignature is returned when an external order signature
	// cannot be verified.
	KindInvalidSignature

	// KindInsufficientFunds is returned when an amount exceeds the
	// remaining capacity.
	KindInsufficientFunds
)

// String returns the name of the error kind.
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"

	case KindNotFound:
		return "NotFound"

	case KindInvalidInput:
		return "InvalidInput"

	case KindUnauthorized:
		return "Unauthorized"

	case KindAlreadyFinalized:
		return "AlreadyFinalized"

	case KindOrderAlreadyMatched:
		return "OrderAlreadyMatched"

	case KindExpired:
		return "Expired"

	case KindNotYetExpired:
		return "NotYetExpired"

	case KindSecretMismatch:
		return "SecretMismatch"

	case KindInvalidSignature:
		return "InvalidSignature"

	case KindInsufficientFunds:
		return "InsufficientFunds"

	default:
		return "Unknown"
	}
}

// Error is a typed error carrying its kind and a stable code. Packages
// declare their failures as *Error sentinels and callers match them with
// errors.Is.
type Error struct {
	// Kind is the category of the error.
	Kind Kind

	// Code is a stable, more specific identifier such as "HtlcNotFound".
	Code string

	msg   string
	cause error
}

// NewError creates a new typed error.
func NewError(kind Kind, code, msg string) *Error {
	return &Error{
		Kind: kind,
		Code: code,
		msg:  msg,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil && e.msg == "" {
		return e.cause.Error()
	}

	return e.msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Wrap converts any error into a *Error. Errors that already carry a kind
// keep it, anything else is classified as KindInternal. The original error
// stays reachable through errors.Is and errors.As.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		if typed == err {
			return typed
		}

		return &Error{
			Kind:  typed.Kind,
			Code:  typed.Code,
			msg:   err.Error(),
			cause: err,
		}
	}

	return &Error{
		Kind:  KindInternal,
		Code:  "Internal",
		msg:   err.Error(),
		cause: err,
	}
}

// Errorf wraps the typed sentinel with additional context. The result still
// matches the sentinel with errors.Is.
func Errorf(sentinel *Error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the given error, or KindInternal if the error
// was not produced by this module.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}

	return KindInternal
}

// CodeOf returns the code of the given error, or "Internal" if the error was
// not produced by this module.
func CodeOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}

	return "Internal"
}
