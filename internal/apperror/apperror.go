// Package apperror defines the application's error taxonomy.
//
// Every error a handler can turn into an HTTP response belongs to exactly one
// CATEGORY (validation, unauthorized, forbidden, not found). Some categories
// also have a more specific REASON, e.g. ErrDuplicateIdentifier is a kind of
// ErrValidation. Reasons wrap their category with %w, so both of these hold:
//
//	errors.Is(err, ErrDuplicateIdentifier) // the specific reason
//	errors.Is(err, ErrValidation)          // the category → 400
//
// Anything that matches no category is an unexpected error (500).
package apperror

import (
	"errors"
	"fmt"
)

// Categories.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Reasons.
var (
	ErrDuplicateIdentifier = fmt.Errorf("%w: duplicate identifier", ErrValidation)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrMissingToken       = fmt.Errorf("%w: missing token", ErrUnauthorized)
	ErrMalformedToken     = fmt.Errorf("%w: malformed token", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	ErrAccountNotFound    = fmt.Errorf("%w: account not found", ErrUnauthorized)
)

type AppError struct {
	Err     error  // category or reason sentinel
	Message string // client-visible message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports that a unique field already holds the given value.
func Duplicate(field, value string) *AppError {
	return &AppError{
		Err:     ErrDuplicateIdentifier,
		Message: fmt.Sprintf("%s %s is already registered", field, value),
		Field:   field,
	}
}

// Unauthorized wraps one of the auth reason sentinels with a client message.
// HTTP handlers map it to 401 Unauthorized.
func Unauthorized(reason error, message string) *AppError {
	if reason == nil {
		reason = ErrUnauthorized
	}
	return &AppError{
		Err:     reason,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
