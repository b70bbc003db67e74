// Package errors defines the typed error carried from services to the HTTP
// envelope. Each Code maps to a status, a retry hint and a disclosure policy.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Draft workflow outcomes.
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeDataUnavailable    Code = "DATA_UNAVAILABLE"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
)

// Metadata is the transport policy for a Code. When ExposeMessage is set the
// error's own message replaces PublicMessage in responses.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	withDetails
	exposeMessage
)

func policy(status int, public string, traits trait) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      traits&retryable != 0,
		DetailsAllowed: traits&withDetails != 0,
		ExposeMessage:  traits&exposeMessage != 0,
	}
}

var policies = map[Code]Metadata{
	CodeValidation:         policy(http.StatusBadRequest, "validation failed", withDetails|exposeMessage),
	CodeUnauthorized:       policy(http.StatusUnauthorized, "authentication required", exposeMessage),
	CodeForbidden:          policy(http.StatusForbidden, "access denied", exposeMessage),
	CodeNotFound:           policy(http.StatusNotFound, "resource not found", exposeMessage),
	CodeConflict:           policy(http.StatusConflict, "conflict detected", exposeMessage),
	CodeStateConflict:      policy(http.StatusUnprocessableEntity, "state transition disallowed", withDetails|exposeMessage),
	CodeIdempotency:        policy(http.StatusConflict, "idempotency key reused", withDetails|exposeMessage),
	CodeRateLimit:          policy(http.StatusTooManyRequests, "rate limit exceeded", exposeMessage),
	CodeInsufficientStock:  policy(http.StatusConflict, "insufficient stock", withDetails|exposeMessage),
	CodeDataUnavailable:    policy(http.StatusServiceUnavailable, "inventory data unavailable", retryable),
	CodePersistenceFailure: policy(http.StatusBadGateway, "could not save changes", retryable|withDetails|exposeMessage),
	CodeInternal:           policy(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:         policy(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := policies[code]; ok {
		return m
	}
	return policies[CodeInternal]
}

// Error is a coded failure with an optional cause and caller-safe details.
// Methods are nil-safe.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches cause; a nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
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

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	s := string(e.code) + ": " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
