package record

import (
	"errors"
	"strings"
)

// Kind classifies a lifecycle failure. Every error surfaced by this core is
// one of these kinds; the HTTP layer maps them to status codes.
type Kind int

const (
	// KindValidation is a field-level constraint violation.
	KindValidation Kind = iota
	// KindInvalidTransition is a status change the policy does not permit.
	KindInvalidTransition
	// KindLockConflict is a stale lock version; the client should refetch.
	KindLockConflict
	// KindNoEffectiveChange is an update or delete that changed nothing.
	KindNoEffectiveChange
	// KindDependencyBlocked means another record references this one.
	KindDependencyBlocked
	// KindPermissionDenied is a privileged-only action by a plain actor.
	KindPermissionDenied
	// KindNotFound is a lookup that matched nothing.
	KindNotFound
	// KindStorage is a persistence failure outside validation.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindInvalidTransition:
		return "invalid_status_transition"
	case KindLockConflict:
		return "lock_conflict"
	case KindNoEffectiveChange:
		return "no_effective_change"
	case KindDependencyBlocked:
		return "dependency_blocked"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage_failure"
	}
	return "unknown"
}

// FieldError is one field-level problem inside a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure raised by the record lifecycle. Fields is only
// populated for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds a typed error with no field detail.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError builds a validation failure carrying field detail.
func NewValidationError(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// WrapError builds a typed error around an underlying cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindStorage for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FieldsOf returns the field-level detail of err, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
