// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for presentation to API clients.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a classified error carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// ShowCause appends Err to the client message of internal errors.
	ShowCause bool
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClientMessage is the text rendered to API clients. Internal causes stay
// hidden unless ShowCause is set.
func (e *Error) ClientMessage() string {
	if e.Kind == KindInternal && e.ShowCause && e.Err != nil {
		return e.Error()
	}
	if e.Message == "" {
		return http.StatusText(e.Status())
	}
	return e.Message
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	return StatusFor(e.Kind)
}

// StatusFor maps a kind to an HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) error   { return &Error{Kind: KindValidation, Message: message} }
func Unauthorized(message string) error { return &Error{Kind: KindUnauthorized, Message: message} }
func Forbidden(message string) error    { return &Error{Kind: KindForbidden, Message: message} }
func NotFound(message string) error     { return &Error{Kind: KindNotFound, Message: message} }
func Conflict(message string) error     { return &Error{Kind: KindConflict, Message: message} }

// Internal wraps an unexpected failure. The message is shown to clients.
func Internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// InternalWithCause is Internal with the cause included in the client message.
func InternalWithCause(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err, ShowCause: true}
}

// KindOf returns the classification of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the provided kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
