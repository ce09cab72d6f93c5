package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderNotDeletable = errors.New("order is not deletable")
	ErrPaymentRequired   = errors.New("payment required")
	ErrBillAlreadyExists = errors.New("bill already exists")
	ErrDeliveryFailure   = errors.New("webhook delivery failed")
)

// ValidationError reports malformed input on a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
