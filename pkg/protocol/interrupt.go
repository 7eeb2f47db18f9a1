package protocol

import "time"

// InterruptKind is the classification of an interrupting action's result.
type InterruptKind string

const (
	InterruptSuccess    InterruptKind = "success"
	InterruptNeedsInput InterruptKind = "needs_input"
	InterruptScheduled  InterruptKind = "scheduled"
)

// InterruptResult tells the runner whether to continue or pause at a node.
type InterruptResult struct {
	Kind       InterruptKind
	Output     map[string]any
	ContinueAt *time.Time
}

// Success continues the run immediately with the given output.
func Success(output map[string]any) InterruptResult {
	return InterruptResult{Kind: InterruptSuccess, Output: output}
}

// NeedsInput pauses the run until an external resume supplies data.
func NeedsInput(output map[string]any) InterruptResult {
	return InterruptResult{Kind: InterruptNeedsInput, Output: output}
}

// Scheduled pauses the run until the wake time elapses.
func Scheduled(output map[string]any, at time.Time) InterruptResult {
	at = at.UTC()

	return InterruptResult{Kind: InterruptScheduled, Output: output, ContinueAt: &at}
}
