package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/service/avatar"
	"github.com/phrazzld/taskman-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrRevokedToken):
		return http.StatusUnauthorized

	// Login failures are a 400, and deliberately indistinguishable between
	// unknown email and wrong password.
	case errors.Is(err, auth.ErrUnableToLogin):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrAvatarNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidUpdate),
		errors.Is(err, avatar.ErrTooLarge),
		errors.Is(err, avatar.ErrUnsupportedFormat),
		errors.Is(err, avatar.ErrDecodeFailed):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrUnableToLogin):
		return "Unable to login"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrRevokedToken):
		return "Please authenticate."

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrAvatarNotFound):
		return "Avatar not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, domain.ErrInvalidUpdate):
		return "Invalid update"

	case errors.Is(err, avatar.ErrTooLarge):
		return "Avatar image exceeds the maximum allowed size"

	case errors.Is(err, avatar.ErrUnsupportedFormat):
		return "Please upload a jpg, jpeg or png image"

	case errors.Is(err, avatar.ErrDecodeFailed):
		return "Uploaded file is not a valid image"

	case errors.Is(err, domain.ErrValidation):
		// Validation errors carry user-facing field messages.
		return err.Error()

	default:
		return "An unexpected error occurred"
	}
}
