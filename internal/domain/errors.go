package domain

import "errors"

var (
	// ErrMealNotFound is returned when no meal with the given id is owned by the caller.
	ErrMealNotFound = errors.New("meal not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("user already exists")
	// ErrValidation marks input that failed validation.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
