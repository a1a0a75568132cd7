// Package apperr carries the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindClient
	KindForbidden
	KindConflict
	KindNotFound
	KindProvider
)

type Error struct {
	Kind Kind
	// Transient applies only to KindProvider: the call is safe to retry.
	Transient bool
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Client(format string, args ...interface{}) error {
	return &Error{Kind: KindClient, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Provider(msg string, transient bool, err error) error {
	return &Error{Kind: KindProvider, Transient: transient, Msg: msg, Err: err}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf returns the taxonomy kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsTransient reports whether err is a retryable provider error.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindProvider && e.Transient
}

// HTTPStatus maps err onto the status code the handlers respond with.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindClient:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindProvider:
		if e.Transient {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
