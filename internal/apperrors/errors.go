package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller lacks the required role for the action.
var ErrForbidden = errors.New("forbidden")

// ErrVersionConflict indicates a review transition was attempted against a stale
// line version; the caller should reload the line and retry.
var ErrVersionConflict = errors.New("version conflict")

// ErrUpstream indicates an external collaborator (the classifier service) was
// unavailable or timed out. Suggestion generation degrades rather than fails.
var ErrUpstream = errors.New("upstream service unavailable")

// ErrImmutable indicates a change was rejected because the target is frozen by
// confirmed mappings or by a superseding import.
var ErrImmutable = errors.New("resource is immutable")

// ErrRuleInUse indicates a mapping rule cannot be hard-deleted because it has
// contributed to confirmed mappings; deactivation is the only removal path.
var ErrRuleInUse = errors.New("rule has contributed to confirmed mappings")

// AppError carries a status code alongside a message and cause.
// Repositories use it for infrastructure failures that have no sentinel.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
