package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the JSON error envelope.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeInactiveAccount  = "INACTIVE_ACCOUNT"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeNotFound         = "NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeInternal         = "INTERNAL_ERROR"
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
	return NewDomainError(CodeValidationFailed, message, http.StatusUnprocessableEntity, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnauthorized reports a failed authentication. reason is kept for errors.Is
// checks and logging, it never reaches the client.
func NewUnauthorized(message string, reason error) error {
	return &DomainError{
		Code:       CodeUnauthenticated,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Err:        reason,
	}
}

func NewInactiveAccount(reason error) error {
	return &DomainError{
		Code:       CodeInactiveAccount,
		Message:    "inactive user",
		HTTPStatus: http.StatusBadRequest,
		Err:        reason,
	}
}

func NewForbidden(reason error) error {
	return &DomainError{
		Code:       CodeForbidden,
		Message:    "insufficient permissions",
		HTTPStatus: http.StatusForbidden,
		Err:        reason,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewTooManyRequests(message string) error {
	return NewDomainError(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
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
	return NewInternalError(err).(*DomainError)
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch err.Code {
	case fiber.StatusNotFound:
		return NewDomainError(CodeNotFound, err.Message, err.Code, nil)
	case fiber.StatusUnauthorized:
		return NewDomainError(CodeUnauthenticated, err.Message, err.Code, nil)
	case fiber.StatusForbidden:
		return NewDomainError(CodeForbidden, err.Message, err.Code, nil)
	case fiber.StatusUnprocessableEntity, fiber.StatusBadRequest:
		return NewDomainError(CodeValidationFailed, err.Message, fiber.StatusUnprocessableEntity, nil)
	}
	if err.Code >= http.StatusInternalServerError {
		return NewInternalError(err).(*DomainError)
	}
	return NewDomainError(http.StatusText(err.Code), err.Message, err.Code, nil)
}

// CodeOf returns the DomainError code carried by err, or "" when err is not one.
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
