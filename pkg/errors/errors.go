package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the machine readable error code sent in the envelope.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeBadRequest     Code = "BAD_REQUEST"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeStateConflict  Code = "STATE_CONFLICT"
	CodeUnprocessable  Code = "UNPROCESSABLE_ENTITY"
	CodeIdempotency    Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit      Code = "RATE_LIMIT_EXCEEDED"
	CodeNotImplemented Code = "NOT_IMPLEMENTED"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeDependency     Code = "DEPENDENCY_ERROR"
)

// Metadata drives how a code is rendered. Messages of 5xx errors are never
// shown to clients; PublicMessage is used instead.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type flag uint8

const (
	withDetails flag = 1 << iota
	retryable
)

func meta(status int, public string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&withDetails != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:     meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeBadRequest:     meta(http.StatusBadRequest, "bad request", withDetails),
	CodeUnauthorized:   meta(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:      meta(http.StatusForbidden, "access denied", 0),
	CodeNotFound:       meta(http.StatusNotFound, "resource not found", 0),
	CodeConflict:       meta(http.StatusConflict, "conflict detected", 0),
	CodeStateConflict:  meta(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeUnprocessable:  meta(http.StatusUnprocessableEntity, "unprocessable entity", withDetails),
	CodeIdempotency:    meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:      meta(http.StatusTooManyRequests, "rate limit exceeded", 0),
	CodeNotImplemented: meta(http.StatusNotImplemented, "not implemented", 0),
	CodeInternal:       meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:     meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error that may wrap a cause and carry client details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// Error omits the cause; Dump walks the chain when the full story is needed.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// StatusOf maps err onto the HTTP status it is rendered with.
func StatusOf(err error) int {
	if typed := As(err); typed != nil {
		return MetadataFor(typed.code).HTTPStatus
	}
	return http.StatusInternalServerError
}
