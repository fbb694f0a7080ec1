// Package apperr defines the error taxonomy shared by every feature.
//
// An *Error carries a Kind sentinel and a stable machine-readable code. Callers
// classify with errors.Is against the Kind sentinels (ErrNotFound, ...), and the
// HTTP boundary maps the kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. They are never returned bare by the usecases; they are
// wrapped in an *Error so the code and message travel with them.
var (
	ErrValidation        = errors.New("validation error")
	ErrAuthentication    = errors.New("authentication error")
	ErrAuthorization     = errors.New("authorization error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrConfiguration     = errors.New("configuration error")
)

// Error is a classified application error.
type Error struct {
	Kind    error
	Code    string
	Message string
	// Details holds per-field validation messages, if any.
	Details []string
	// Cause is the underlying error, kept for logging only.
	Cause error
}

// E builds a classified error.
func E(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies cause under kind. The cause stays reachable through errors.Is/As.
func Wrap(kind error, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of e carrying per-field messages.
func (e *Error) WithDetails(details ...string) *Error {
	cp := *e
	cp.Details = append([]string(nil), details...)
	return &cp
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Is matches another *Error by code so that package-level sentinels built with E
// compare equal to copies produced by WithDetails.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
