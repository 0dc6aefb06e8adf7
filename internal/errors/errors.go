// Package errors provides standardized domain errors with codes for the circulate API.
//
// Services return typed errors; the API layer maps them to HTTP responses:
//
//	if user.OutstandingFine > 0 {
//	    return errors.OutstandingFine("user has unpaid fines").WithDetails(...)
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// General error codes.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeRateLimited        Code = "RATE_LIMITED"
)

// Circulation and reservation error codes. Each admission failure kind the
// issue/reserve/renew/return operations can produce has its own code so
// clients can branch without parsing messages.
const (
	CodeLimitExceeded       Code = "LIMIT_EXCEEDED"
	CodeOutstandingFine     Code = "OUTSTANDING_FINE"
	CodeAccountExpired      Code = "ACCOUNT_EXPIRED"
	CodeNoCopyAvailable     Code = "NO_COPY_AVAILABLE"
	CodeReservationConflict Code = "RESERVATION_CONFLICT"
	CodeOverdue             Code = "OVERDUE"
	CodeRenewalLimit        Code = "RENEWAL_LIMIT_REACHED"
	CodeAlreadyReturned     Code = "ALREADY_RETURNED"
	CodeAlreadyReserved     Code = "ALREADY_RESERVED"
	CodeAlreadyBorrowed     Code = "ALREADY_BORROWED"
	CodeInvalidPickupDate   Code = "INVALID_PICKUP_DATE"
	CodePickupTooEarly      Code = "PICKUP_TOO_EARLY"
	CodeNotActive           Code = "NOT_ACTIVE"
	CodeInvalidBarcode      Code = "INVALID_BARCODE"
	CodeUnknownIdentity     Code = "UNKNOWN_IDENTITY"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeUnknownIdentity:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeReservationConflict,
		CodeAlreadyReturned, CodeAlreadyReserved, CodeAlreadyBorrowed,
		CodeNoCopyAvailable, CodeLimitExceeded, CodeRenewalLimit,
		CodeOverdue, CodePickupTooEarly, CodeNotActive:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden, CodeOutstandingFine, CodeAccountExpired:
		return http.StatusForbidden
	case CodeValidation, CodeInvalidPickupDate, CodeInvalidBarcode:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden           = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials  = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrTokenExpired        = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrLimitExceeded       = &Error{Code: CodeLimitExceeded, Message: "borrowing limit exceeded"}
	ErrOutstandingFine     = &Error{Code: CodeOutstandingFine, Message: "outstanding fine"}
	ErrAccountExpired      = &Error{Code: CodeAccountExpired, Message: "account expired"}
	ErrNoCopyAvailable     = &Error{Code: CodeNoCopyAvailable, Message: "no copy available"}
	ErrReservationConflict = &Error{Code: CodeReservationConflict, Message: "reservation conflict"}
	ErrOverdue             = &Error{Code: CodeOverdue, Message: "record is overdue"}
	ErrRenewalLimit        = &Error{Code: CodeRenewalLimit, Message: "renewal limit reached"}
	ErrAlreadyReturned     = &Error{Code: CodeAlreadyReturned, Message: "already returned"}
	ErrAlreadyReserved     = &Error{Code: CodeAlreadyReserved, Message: "already reserved"}
	ErrAlreadyBorrowed     = &Error{Code: CodeAlreadyBorrowed, Message: "already borrowed"}
	ErrInvalidPickupDate   = &Error{Code: CodeInvalidPickupDate, Message: "invalid pickup date"}
	ErrPickupTooEarly      = &Error{Code: CodePickupTooEarly, Message: "pickup too early"}
	ErrNotActive           = &Error{Code: CodeNotActive, Message: "reservation not active"}
	ErrInvalidBarcode      = &Error{Code: CodeInvalidBarcode, Message: "invalid barcode"}
	ErrUnknownIdentity     = &Error{Code: CodeUnknownIdentity, Message: "unknown identity"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// RateLimited creates a throttling error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// Circulation constructors.

// LimitExceeded creates a borrowing limit error.
func LimitExceeded(msg string) *Error {
	return &Error{Code: CodeLimitExceeded, Message: msg}
}

// OutstandingFine creates an outstanding fine block error.
func OutstandingFine(msg string) *Error {
	return &Error{Code: CodeOutstandingFine, Message: msg}
}

// AccountExpired creates an account expiry block error.
func AccountExpired(msg string) *Error {
	return &Error{Code: CodeAccountExpired, Message: msg}
}

// NoCopyAvailable creates a no copy available error.
func NoCopyAvailable(msg string) *Error {
	return &Error{Code: CodeNoCopyAvailable, Message: msg}
}

// ReservationConflict creates a reservation priority conflict error.
func ReservationConflict(msg string) *Error {
	return &Error{Code: CodeReservationConflict, Message: msg}
}

// Overdue creates an overdue renewal block error.
func Overdue(msg string) *Error {
	return &Error{Code: CodeOverdue, Message: msg}
}

// RenewalLimit creates a renewal cap error.
func RenewalLimit(msg string) *Error {
	return &Error{Code: CodeRenewalLimit, Message: msg}
}

// AlreadyReturned creates an already returned error.
func AlreadyReturned(msg string) *Error {
	return &Error{Code: CodeAlreadyReturned, Message: msg}
}

// AlreadyReserved creates an already reserved error.
func AlreadyReserved(msg string) *Error {
	return &Error{Code: CodeAlreadyReserved, Message: msg}
}

// AlreadyBorrowed creates an already borrowed error.
func AlreadyBorrowed(msg string) *Error {
	return &Error{Code: CodeAlreadyBorrowed, Message: msg}
}

// InvalidPickupDate creates an invalid pickup date error.
func InvalidPickupDate(msg string) *Error {
	return &Error{Code: CodeInvalidPickupDate, Message: msg}
}

// PickupTooEarly creates a pickup too early error.
func PickupTooEarly(msg string) *Error {
	return &Error{Code: CodePickupTooEarly, Message: msg}
}

// NotActive creates a not active reservation error.
func NotActive(msg string) *Error {
	return &Error{Code: CodeNotActive, Message: msg}
}

// InvalidBarcode creates an invalid barcode error.
func InvalidBarcode(msg string) *Error {
	return &Error{Code: CodeInvalidBarcode, Message: msg}
}

// UnknownIdentity creates an unknown identity error.
func UnknownIdentity(msg string) *Error {
	return &Error{Code: CodeUnknownIdentity, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
