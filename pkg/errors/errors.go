// Package errors defines structured error types for the gateward admission
// control service. Every error carries a stable code and an HTTP status so the
// fail-open / fail-closed policy of each call site stays visible instead of
// being buried in catch-and-ignore blocks.
package errors

import (
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// CodeInvalidRequest indicates a malformed or incomplete request.
	CodeInvalidRequest Code = "invalid_request"

	// CodeUnauthenticated collapses key-not-found, key-disabled and
	// key-expired into one externally visible outcome. The specific
	// condition is never surfaced, to prevent probing for valid-but-disabled
	// keys.
	CodeUnauthenticated Code = "unauthenticated"

	// CodePermissionDenied indicates a valid credential with insufficient
	// scope for the requested endpoint or permission.
	CodePermissionDenied Code = "permission_denied"

	// CodeRateLimited indicates the caller exhausted its request window.
	CodeRateLimited Code = "rate_limit_exceeded"

	// CodeStorageUnavailable indicates the durable store could not be
	// reached. Rate limit reads treat this as zero usage; writes log and
	// continue. It is never surfaced as a rejected request.
	CodeStorageUnavailable Code = "storage_unavailable"

	// CodePersistence indicates a store write failed on a path where the
	// failure must be visible, such as key issuance.
	CodePersistence Code = "persistence_error"

	// CodeNotFound indicates a missing resource on a management endpoint.
	CodeNotFound Code = "not_found"

	// CodeInternal indicates an unexpected server-side failure.
	CodeInternal Code = "internal_error"
)

// AppError is a structured error with a code, an HTTP mapping, and an optional
// cause chain.
type AppError interface {
	error

	// Code returns the stable error code.
	Code() Code

	// HTTPStatus returns the HTTP status this error maps to.
	HTTPStatus() int

	// Unwrap returns the underlying cause, if any.
	Unwrap() error

	// WithCause attaches an underlying error to the chain.
	WithCause(cause error) AppError
}

type baseError struct {
	code       Code
	httpStatus int
	message    string
	cause      error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Code() Code      { return e.code }
func (e *baseError) HTTPStatus() int { return e.httpStatus }
func (e *baseError) Unwrap() error   { return e.cause }

func (e *baseError) WithCause(cause error) AppError {
	return &baseError{
		code:       e.code,
		httpStatus: e.httpStatus,
		message:    e.message,
		cause:      cause,
	}
}

// New creates an AppError with the given code, status and message.
func New(code Code, httpStatus int, message string) AppError {
	return &baseError{code: code, httpStatus: httpStatus, message: message}
}

// ================================================================================
// Predefined Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error.
func ErrInvalidRequest(message string) AppError {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrUnauthenticated creates the single generic invalid-credential error.
func ErrUnauthenticated() AppError {
	return New(CodeUnauthenticated, http.StatusUnauthorized, "invalid credential")
}

// ErrPermissionDenied creates a permission_denied error. The pattern that
// failed to match is deliberately not echoed back.
func ErrPermissionDenied() AppError {
	return New(CodePermissionDenied, http.StatusForbidden, "forbidden")
}

// ErrRateLimited creates a rate_limit_exceeded error.
func ErrRateLimited(limit int, retryAfterSeconds int) AppError {
	return New(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("rate limit of %d exceeded, retry after %ds", limit, retryAfterSeconds))
}

// ErrStorageUnavailable creates a storage_unavailable error.
func ErrStorageUnavailable(message string) AppError {
	return New(CodeStorageUnavailable, http.StatusServiceUnavailable, message)
}

// ErrPersistence creates a persistence_error error.
func ErrPersistence(message string) AppError {
	return New(CodePersistence, http.StatusInternalServerError, message)
}

// ErrNotFound creates a not_found error.
func ErrNotFound(message string) AppError {
	return New(CodeNotFound, http.StatusNotFound, message)
}

// ErrInternal creates an internal_error error.
func ErrInternal(message string) AppError {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// ================================================================================
// Predicates
// ================================================================================

// As attempts to cast an error to AppError.
func As(err error) (AppError, bool) {
	appErr, ok := err.(AppError)
	return appErr, ok
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code() == code
	}
	return false
}

// IsStorageUnavailable reports whether err represents an unreachable store.
func IsStorageUnavailable(err error) bool {
	return IsCode(err, CodeStorageUnavailable)
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// ================================================================================
// Error Response Shape
// ================================================================================

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ToErrorResponse converts any error to the wire shape. Non-AppError values
// collapse to a generic internal error so internals never leak.
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := As(err); ok {
		return &ErrorResponse{
			Error:            string(appErr.Code()),
			ErrorDescription: appErr.Error(),
		}
	}
	return &ErrorResponse{
		Error:            string(CodeInternal),
		ErrorDescription: "an unexpected error occurred",
	}
}

// HTTPStatus returns the status for any error, defaulting to 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
