package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates missing or invalid configuration or input. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrActionRuntime indicates a failure while running an action, e.g. a third-party call.
	ErrActionRuntime = errors.New("action runtime error")
)

// ActionError wraps failures raised by node actions with additional context.
type ActionError struct {
	ActionID string // Action that failed
	Kind     error  // ErrValidation or ErrActionRuntime
	Message  string // Human-readable message
	Err      error  // Underlying error
}

func (e *ActionError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.ActionID, e.Message, e.Err)
	}

	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.ActionID, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.ActionID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is matches both the error kind and the underlying error.
func (e *ActionError) Is(target error) bool {
	return errors.Is(e.Kind, target) || errors.Is(e.Err, target)
}

// NewValidationError creates a validation error for an action.
func NewValidationError(actionID, message string) *ActionError {
	return &ActionError{ActionID: actionID, Kind: ErrValidation, Message: message}
}

// NewRuntimeError creates a runtime error for an action.
func NewRuntimeError(actionID, message string, err error) *ActionError {
	return &ActionError{ActionID: actionID, Kind: ErrActionRuntime, Message: message, Err: err}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
