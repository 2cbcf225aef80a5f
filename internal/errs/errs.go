// Package errs defines the error kinds surfaced to API callers.
//
// Stores and services return *errs.Error values; the HTTP layer maps each
// kind to a status code and a machine-readable body. Anything that is not an
// *errs.Error is treated as an internal failure and hidden from the client.
package errs

import "errors"

// Kind classifies a rejected request.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
)

// Error carries a kind, a human-readable message and an optional field name
// for validation and conflict details.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validation builds a Validation-kind error for a field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Conflict builds a Conflict-kind error for a field.
func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// Authorization builds an Authorization-kind error.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound builds a NotFound-kind error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
