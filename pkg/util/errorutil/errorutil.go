// Package errorutil defines the error taxonomy rendered to API callers.
package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Error codes rendered in responses.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidOrExpiredCode = "INVALID_OR_EXPIRED_CODE"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeRoleMismatch         = "ROLE_MISMATCH"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeSubjectNotFound      = "SUBJECT_NOT_FOUND"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidOrExpiredCode covers mismatch, expiry and lockout alike.
func NewInvalidOrExpiredCode() error {
	return NewDomainError(CodeInvalidOrExpiredCode, "invalid or expired code", http.StatusBadRequest, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid credentials", http.StatusUnauthorized, nil)
}

func NewRoleMismatch() error {
	return NewDomainError(CodeRoleMismatch, "account is registered under a different role", http.StatusBadRequest, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewSubjectNotFound tells the client to sign in again.
func NewSubjectNotFound() error {
	return NewDomainError(CodeSubjectNotFound, "session subject no longer exists", http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch {
	case err.Code == http.StatusNotFound:
		return NewDomainError(CodeNotFound, err.Message, err.Code, nil)
	case err.Code == http.StatusUnauthorized:
		return NewDomainError(CodeUnauthorized, err.Message, err.Code, nil)
	case err.Code == http.StatusForbidden:
		return NewDomainError(CodeForbidden, err.Message, err.Code, nil)
	case err.Code >= 400 && err.Code < 500:
		return NewDomainError(CodeValidationFailed, err.Message, err.Code, nil)
	default:
		return NewInternalError(err).(*DomainError)
	}
}

// MapError converts err to a *DomainError typed as error.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
