// Package apperr defines the error taxonomy shared by services and the HTTP layer.
//
// Every Error carries a Kind, a public Message that is safe to return to clients,
// and an optional Cause kept for logs. Error() never includes the cause, so an
// error that reaches a response cannot leak why a check failed.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindCredentials
	KindDuplicate
	KindValidation
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindCredentials:
		return "credentials"
	case KindDuplicate:
		return "duplicate"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Fixed public messages.
const (
	MsgAuthentication = "Please authenticate"
	MsgCredentials    = "Invalid credentials"
	MsgInternal       = "Something went wrong!"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the internal cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication, Message: MsgAuthentication}
	ErrCredentials    = &Error{Kind: KindCredentials, Message: MsgCredentials}
	ErrDuplicate      = &Error{Kind: KindDuplicate}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrTransient      = &Error{Kind: KindTransient, Message: MsgInternal}
	ErrInternal       = &Error{Kind: KindInternal, Message: MsgInternal}
)

// Authentication reports a missing, malformed or rejected token.
func Authentication(cause error) *Error {
	return &Error{Kind: KindAuthentication, Message: MsgAuthentication, Cause: cause}
}

// Credentials reports a failed login without saying which part was wrong.
func Credentials(cause error) *Error {
	return &Error{Kind: KindCredentials, Message: MsgCredentials, Cause: cause}
}

// Duplicate reports a uniqueness conflict with an actionable message.
func Duplicate(message string, cause error) *Error {
	return &Error{Kind: KindDuplicate, Message: message, Cause: cause}
}

// Validation reports malformed input with an actionable message.
func Validation(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: message, Cause: cause}
}

// NotFound reports a resource absent for the caller.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Transient reports an unavailable or timed out dependency.
func Transient(cause error) *Error {
	return &Error{Kind: KindTransient, Message: MsgInternal, Cause: cause}
}

// Internal reports anything unexpected.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Cause: cause}
}

// From returns err as an *Error, classifying unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
