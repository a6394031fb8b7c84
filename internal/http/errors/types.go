package errors

import (
	"fmt"
	"net/http"
)

// AppError is the standard error shape surfaced by the HTTP layer.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // original cause, logged but never sent to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FromError converts any error into an AppError, defaulting to a
// generic internal error while keeping the original cause for logs.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail returns a copy with extra detail; the predefined error
// values stay immutable.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause returns a copy wrapping the original error.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// Predefined errors

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request has invalid syntax or missing parameters.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication is required.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "The access token is invalid or expired.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "The HTTP method is not allowed for this resource.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "The request conflicts with existing state.",
		HTTPStatus: http.StatusConflict,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "A backing service is unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// Federation-specific errors. UnsupportedProvider answers 500 on
// purpose: the endpoint contract predates this service and clients
// depend on it.

var (
	ErrUnsupportedProvider = &AppError{
		Code:       "UNSUPPORTED_PROVIDER",
		Message:    "The login provider is unknown or not configured.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrMissingExternalIdentity = &AppError{
		Code:       "MISSING_EXTERNAL_IDENTITY",
		Message:    "No external login assertion is attached to the current identity.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrExternalLoginNotFound = &AppError{
		Code:       "EXTERNAL_LOGIN_NOT_FOUND",
		Message:    "Registration requires a signed-in external identity.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrLinkConflict = &AppError{
		Code:       "LINK_CONFLICT",
		Message:    "This external identity is already linked to an account.",
		HTTPStatus: http.StatusConflict,
	}
)
