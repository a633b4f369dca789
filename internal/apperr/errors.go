package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies domain failures.
type Kind string

const (
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindValidation     Kind = "VALIDATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindInfrastructure Kind = "INFRASTRUCTURE"
)

// Error is the single error type surfaced by services.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Authentication(msg string) error { return New(KindAuthentication, msg) }

func Authorization(msg string) error { return New(KindAuthorization, msg) }

func Validation(msg string) error { return New(KindValidation, msg) }

func NotFound(msg string) error { return New(KindNotFound, msg) }

func Conflict(msg string) error { return New(KindConflict, msg) }

func Infra(msg string, cause error) error { return Wrap(KindInfrastructure, msg, cause) }

// KindOf reports the kind of err. Errors that are not *Error are infrastructure failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInfrastructure
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the text safe to hand back to a client.
func PublicMessage(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInfrastructure {
		return appErr.Message
	}
	return fallback
}

// HTTPStatus maps an error to the REST status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
