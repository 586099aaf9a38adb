// Package apierr is the closed set of errors the HTTP surface can report.
//
// Every error carries the status code and plain-text body sent to the client.
// Internal errors additionally wrap an opaque cause that is only ever logged.
package apierr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindMethodNotAllowed
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindInternal
	KindUnimplemented
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInternal:
		return "internal"
	case KindUnimplemented:
		return "unimplemented"
	default:
		return "unknown"
	}
}

func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

const internalBody = "Internal Server Error"

// Client-facing bodies shared with tests.
const (
	MsgNotFound         = "Not Found"
	MsgMethodNotAllowed = "Method Not Allowed"
	MsgLoginRequired    = "You must log in to do that"
	MsgMeLoginRequired  = "Login is required for '~me' paths"
	MsgInvalidToken     = "Unrecognized authentication token"
	MsgOnlyForMe        = "This endpoint is only available for ~me"
	MsgUnimplemented    = "Not Implemented"
)

type Error struct {
	Kind Kind
	Body string
	// Cause is set for KindInternal only.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Cause.Error()
	}

	return e.Kind.String() + ": " + e.Body
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Status() int {
	return e.Kind.Status()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Kind == t.Kind && e.Body == t.Body
}

func NotFound() *Error {
	return &Error{Kind: KindNotFound, Body: MsgNotFound}
}

// NotFoundMsg is a 404 naming the missing resource.
func NotFoundMsg(msg string) *Error {
	return &Error{Kind: KindNotFound, Body: msg}
}

func MethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed, Body: MsgMethodNotAllowed}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Body: msg}
}

func LoginRequired(msg string) *Error {
	if msg == "" {
		msg = MsgLoginRequired
	}

	return &Error{Kind: KindUnauthorized, Body: msg}
}

func InvalidToken() *Error {
	return &Error{Kind: KindUnauthorized, Body: MsgInvalidToken}
}

func OnlyForMe() *Error {
	return &Error{Kind: KindUnauthorized, Body: MsgOnlyForMe}
}

// Unauthorized is for credential failures that are not about the bearer token.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Body: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Body: msg}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Body: internalBody, Cause: cause}
}

func Unimplemented() *Error {
	return &Error{Kind: KindUnimplemented, Body: MsgUnimplemented}
}

// From classifies any error. Errors outside the taxonomy become Internal.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	return Internal(err)
}
