// Package protocol defines the interfaces and contracts for pluggable node actions.
package protocol

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Action is the capability every connector satisfies.
// Actions only return data; they never read or write execution state.
type Action interface {
	// Run performs the action, possibly calling third-party APIs.
	Run(ctx context.Context, input ActionContext) (map[string]any, error)

	// MockRun returns representative output without side effects.
	MockRun(ctx context.Context, input ActionContext) (map[string]any, error)
}

// InterruptingAction is an action able to pause the execution instead of completing.
type InterruptingAction interface {
	Action

	// ClassifyInterrupt maps the raw result of Run into continue, needs input or scheduled.
	ClassifyInterrupt(ctx context.Context, input ActionContext, result map[string]any) (InterruptResult, error)
}

// IsInterrupting reports whether an action may pause the execution.
func IsInterrupting(action Action) bool {
	_, ok := action.(InterruptingAction)

	return ok
}

// ResumeValidator is implemented by interrupting actions that only accept specific resume data.
// A rejected resume leaves the node paused.
type ResumeValidator interface {
	ValidateResume(ctx context.Context, data map[string]any) error
}

// ActionFactory creates action instances and provides metadata about the action type.
type ActionFactory interface {
	// ID returns the action id nodes reference in their action_id field
	ID() string

	// Name returns the human-readable name for this action
	Name() string

	// Description returns a description of what this action does
	Description() string

	// Schema returns the JSON schema the resolved node config must satisfy
	Schema() map[string]any

	// Create creates a new action instance with the given resolved configuration
	Create(ctx context.Context, config map[string]any) (Action, error)
}

// ActionContext is what a dispatched node receives.
type ActionContext struct {
	ExecutionID string
	WorkflowID  string
	ProjectID   string
	NodeID      string

	// Config is the node configuration after template resolution.
	Config map[string]any

	// TriggerData is the input data the execution was started with.
	TriggerData map[string]any

	// NodeOutputs holds the output of every successful node keyed by node id.
	NodeOutputs map[string]any

	Services Services
	Logger   *slog.Logger
}

// Services are the narrow platform services handed to actions.
type Services struct {
	HTTPClient *http.Client
	Notifier   Notifier
	Now        func() time.Time
}

// Clock returns the current time using the configured clock.
func (s Services) Clock() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}

	return time.Now().UTC()
}

// Notify sends a notification through the configured notifier, if any.
func (s Services) Notify(ctx context.Context, notification Notification) error {
	if s.Notifier == nil {
		return nil
	}

	return s.Notifier.Notify(ctx, notification)
}

// Notifier delivers user-facing notifications. Delivery itself lives outside the engine.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Notification is a message an action wants surfaced to a human.
type Notification struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	ProjectID   string         `json:"project_id"`
	NodeID      string         `json:"node_id"`
	Kind        string         `json:"kind"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Notification) error {
	return nil
}

// Notification builds a notification addressed from the dispatched node.
func (c ActionContext) Notification(kind, message string, data map[string]any) Notification {
	return Notification{
		ExecutionID: c.ExecutionID,
		WorkflowID:  c.WorkflowID,
		ProjectID:   c.ProjectID,
		NodeID:      c.NodeID,
		Kind:        kind,
		Message:     message,
		Data:        data,
	}
}

// Log returns the context logger or the default logger.
func (c ActionContext) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}
