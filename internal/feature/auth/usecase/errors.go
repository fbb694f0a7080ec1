// Package usecase implements the business logic for the auth feature.
package usecase

import (
	"errors"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = apperr.E(apperr.ErrNotFound, "USER_NOT_FOUND", "User not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = apperr.E(apperr.ErrConflict, "EMAIL_IN_USE", "User already exists")

	// ErrInvalidCredentials is the only login failure reported to clients,
	// whether the email is unknown or the password is wrong.
	ErrInvalidCredentials = apperr.E(apperr.ErrAuthentication, "INVALID_CREDENTIALS", "Invalid credentials")

	// ErrMissingFields is returned when login is attempted without an email or password.
	ErrMissingFields = apperr.E(apperr.ErrValidation, "MISSING_FIELDS", "Please provide an email and password")

	// ErrMissingEmail is returned when an external identity carries no email.
	ErrMissingEmail = apperr.E(apperr.ErrValidation, "MISSING_EMAIL", "Email is required for external authentication")

	// ErrInvalidInput is returned with per-field details when input fails validation.
	ErrInvalidInput = apperr.E(apperr.ErrValidation, "VALIDATION_ERROR", "Validation error")

	// ErrIncorrectPassword is returned by ChangePassword when the current password does not match.
	ErrIncorrectPassword = apperr.E(apperr.ErrValidation, "INCORRECT_PASSWORD", "Current password is incorrect")

	// ErrPasswordMismatch is returned by CredentialStore.Verify. It never reaches clients.
	ErrPasswordMismatch = errors.New("password mismatch")
)
