package jobs

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Every error returned by this package matches exactly one of
// them under errors.Is, or is an infrastructure failure.
var (
	ErrValidation        = errors.New("validation failed")
	ErrPermission        = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
)

// Error is a typed domain failure.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Code is a stable machine readable identifier for the error kind.
func (e *Error) Code() string {
	switch e.Kind {
	case ErrValidation:
		return "VALIDATION_ERROR"
	case ErrPermission:
		return "PERMISSION_DENIED"
	case ErrInvalidTransition:
		return "INVALID_TRANSITION"
	case ErrConflict:
		return "CONFLICT"
	case ErrNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// ValidationError reports malformed input on field.
func ValidationError(field, message string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// PermissionError reports that the actor lacks rights for the action.
func PermissionError(message string) error {
	return &Error{Kind: ErrPermission, Message: message}
}

// TransitionError reports a state machine violation.
func TransitionError(from, to string) error {
	return &Error{Kind: ErrInvalidTransition, Message: fmt.Sprintf("cannot move application from %q to %q", from, to)}
}

// ConflictError reports a duplicate or a lost concurrent write.
func ConflictError(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// NotFoundError reports a missing entity.
func NotFoundError(entity string) error {
	return &Error{Kind: ErrNotFound, Message: entity + " not found"}
}

// AsError extracts the typed domain error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
