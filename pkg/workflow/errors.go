package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound          = errors.New("node not found")
	ErrAlreadyResumed        = errors.New("node already resumed")
	ErrNodeNotPaused         = errors.New("node is not waiting to be resumed")
	ErrExecutionNotResumable = errors.New("execution is not resumable")
	ErrConcurrencyConflict   = errors.New("execution was modified concurrently")
	ErrNoWebhookListener     = errors.New("no webhook listener is waiting for input")
	ErrInvalidWorkflow       = errors.New("invalid workflow")
)

// ExecutionError adds the operation, execution and node to a runner error.
type ExecutionError struct {
	Op          string
	ExecutionID string
	NodeID      string
	Err         error
}

func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s execution %s node %s: %v", e.Op, e.ExecutionID, e.NodeID, e.Err)
	}

	return fmt.Sprintf("%s execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func newExecutionError(op, executionID, nodeID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExecutionID: executionID, NodeID: nodeID, Err: err}
}
