// Package usecase implements the book lifecycle: staging, storing, reading,
// updating and deleting uploaded documents and their metadata.
package usecase

import (
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

var (
	// ErrBookNotFound is returned when a book does not exist or is hidden from the caller.
	ErrBookNotFound = apperr.E(apperr.ErrNotFound, "BOOK_NOT_FOUND", "Book not found")

	// ErrUnsupportedFormat is returned for uploads that are not pdf, epub or mobi.
	ErrUnsupportedFormat = apperr.E(apperr.ErrUnsupportedFormat, "UNSUPPORTED_FORMAT",
		"Unsupported file format. Allowed formats: pdf, epub, mobi")

	// ErrNoFile is returned when an upload request carries no file.
	ErrNoFile = apperr.E(apperr.ErrValidation, "NO_FILE", "Please upload a file")

	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = apperr.E(apperr.ErrValidation, "FILE_TOO_LARGE", "File is too large")

	// ErrInvalidInput is returned with per-field details when metadata fails validation.
	ErrInvalidInput = apperr.E(apperr.ErrValidation, "VALIDATION_ERROR", "Validation error")

	// ErrInvalidSort is returned when the requested sort key is not allowed.
	ErrInvalidSort = apperr.E(apperr.ErrValidation, "INVALID_SORT",
		"sort must be one of: createdAt, updatedAt, title, author (prefix with - for descending)")
)
