package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. The transport layer maps them to HTTP
// status codes in RespondWithError.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the standardized API error body.
type ErrorResponse struct {
	Error string       `json:"error"`
	Code  string       `json:"code,omitempty"`
	Data  []FieldError `json:"data,omitempty"`
}

// AppError is an application error with an optional list of field-level
// details and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Data    []FieldError
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates an error for missing resources.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewValidationError creates an error for invalid input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError creates a validation error carrying per-field
// messages for the client to display.
func NewFieldValidationError(message string, fields []FieldError) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Data:    fields,
	}
}

// NewAuthenticationError creates an error for requests without a valid
// identity.
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

// NewAuthorizationError creates an error for callers acting on resources
// they do not own.
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewInternalError creates an error for unexpected internal failures.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// HTTPStatus maps an error to its transport status code. Errors that are
// not AppErrors are treated as internal.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation:
		return fiber.StatusUnprocessableEntity
	case CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes the standardized error response for err. Wrapped
// causes are never serialized to the client.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError(err)
	}
	return c.Status(HTTPStatus(appErr)).JSON(ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
		Data:  appErr.Data,
	})
}
