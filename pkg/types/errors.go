package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidLogin     = errors.New("invalid credentials")

	ErrUserNotFound     = errors.New("user not found")
	ErrTransferNotFound = errors.New("transfer not found")

	ErrAccessDenied = errors.New("access denied")
)

// AccessDenied wraps ErrAccessDenied with a caller-facing reason. The reason
// text varies by transfer type for clarity; the semantics do not.
func AccessDenied(reason string) error {
	return fmt.Errorf("%w: %s", ErrAccessDenied, reason)
}

// ValidationError marks a malformed field value: unknown status string,
// oversized notes, missing upload fields. Handlers map it to a 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
