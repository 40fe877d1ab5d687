package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds surfaced to callers.
// Typed errors below match them through errors.Is.
var (
	// ErrValidation indicates malformed input to a create/register operation
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unknown agent, build, session or conversation
	ErrNotFound = errors.New("not found")

	// ErrProvider indicates the chat responder failed
	ErrProvider = errors.New("provider error")

	// ErrInvalidState indicates an operation not allowed in the record's current state
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError reports a missing or malformed field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown identity
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Is matches ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ProviderError wraps a failure from the chat responder
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("AI provider error (%s): %v", e.Provider, e.Err)
}

// Unwrap returns the underlying responder error
func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches ErrProvider
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// InvalidStateError reports an operation attempted in the wrong lifecycle state
type InvalidStateError struct {
	ID    string
	State BuildState
	Op    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s build %s in state %s", e.Op, e.ID, e.State)
}

// Is matches ErrInvalidState
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// NewNotFound builds a NotFoundError
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// NewValidation builds a ValidationError
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
