package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced inside the response envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeTitleNotFound    = "TITLE_NOT_FOUND"
	CodeFavoriteNotFound = "FAVORITE_NOT_FOUND"
	CodeHistoryNotFound  = "HISTORY_NOT_FOUND"
	CodeUserExists       = "USER_EXISTS"
	CodeBadCreds         = "INVALID_CREDENTIALS"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// APIResponse is the uniform envelope every endpoint returns.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
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

// Predefined error constructors
func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewTitleNotFoundError(tmdbID int64) *AppError {
	return &AppError{
		Code:    CodeTitleNotFound,
		Message: fmt.Sprintf("Title %d not found", tmdbID),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondOK writes a success envelope.
func RespondOK(c *fiber.Ctx, message string, data any) error {
	return c.JSON(APIResponse{Success: true, Message: message, Data: data})
}

// RespondCreated writes a success envelope with 201.
func RespondCreated(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{Success: true, Message: message, Data: data})
}

// RespondFailure writes a success:false envelope for an expected domain failure
// (not-found, conflict, validation). The transport status stays 200 so clients
// branch on the envelope, never on HTTP codes, for business outcomes.
func RespondFailure(c *fiber.Ctx, message, code string) error {
	return c.JSON(APIResponse{Success: false, Message: message, Error: code})
}

// RespondWithError maps an error onto the envelope at the given transport status.
// AppError codes pass through; everything else is reported as internal.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(status).JSON(APIResponse{
			Success: false,
			Message: appErr.Message,
			Error:   appErr.Code,
		})
	}
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: "Internal server error",
		Error:   CodeInternal,
	})
}
