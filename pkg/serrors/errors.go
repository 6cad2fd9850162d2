package serrors

import (
	"errors"
	"fmt"
)

// Base is a coded error. Services return errors wrapping one of the
// sentinel Base values below so callers can branch with errors.Is and
// transports can map codes without string matching.
type Base struct {
	Code    string
	Message string
}

func (e *Base) Error() string {
	return e.Message
}

func NewError(code, message string) *Base {
	return &Base{Code: code, Message: message}
}

var (
	ErrNotFound         = NewError("NOT_FOUND", "entity not found")
	ErrUnauthorized     = NewError("UNAUTHORIZED", "actor lacks the required capability")
	ErrInvalidState     = NewError("INVALID_STATE", "operation not allowed from the current status")
	ErrAlreadyClaimed   = NewError("ALREADY_CLAIMED", "request is already claimed by another screener")
	ErrDuplicateRequest = NewError("DUPLICATE_REQUEST", "an identical active request already exists")
	ErrValidation       = NewError("VALIDATION_ERROR", "invalid input")
)

// NewFieldRequiredError reports a missing mandatory field as a validation error.
func NewFieldRequiredError(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}

func NewInvalidTransitionError(entity, from, action string) error {
	return fmt.Errorf("%w: cannot %s %s in status %q", ErrInvalidState, action, entity, from)
}

// CodeOf returns the code of the innermost Base in err's chain, or "" if none.
func CodeOf(err error) string {
	var base *Base
	if errors.As(err, &base) {
		return base.Code
	}
	return ""
}
