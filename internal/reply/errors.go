package reply

import (
	"errors"
	"net/http"
)

// Kind classifies why a reply could not be generated.
type Kind string

const (
	KindPermissionDenied     Kind = "permission_denied"
	KindNotFound             Kind = "not_found"
	KindMissingConfiguration Kind = "missing_configuration"
	KindTransport            Kind = "transport_error"
	KindUpstream             Kind = "upstream_error"
)

// Error is a generation failure surfaced to the caller. Message is safe to
// show to an administrator.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the failure kind to the status the AJAX endpoint returns.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMissingConfiguration:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// PermissionDenied builds the error returned when the caller lacks the
// capability or presents a bad anti-forgery token.
func PermissionDenied(msg string) *Error {
	return newError(KindPermissionDenied, msg, nil)
}
