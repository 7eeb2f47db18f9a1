// Package events defines the execution lifecycle events published by the runner.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every execution event.
const Topic = "flowrun.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent          EventType = "execution.started"
	ExecutionResumedEvent          EventType = "execution.resumed"
	ExecutionPausedEvent           EventType = "execution.paused"
	ExecutionCompletedEvent        EventType = "execution.completed"
	ExecutionFailedEvent           EventType = "execution.failed"
	ExecutionAdvanceRequestedEvent EventType = "execution.advance.requested"
	NodeNotificationEvent          EventType = "node.notification"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkflowID  string         `json:"workflow_id"`
	ProjectID   string         `json:"project_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// ExecutionResumed is published after a paused node was completed by an external call or a wake.
type ExecutionResumed struct {
	BaseEvent

	NodeID string `json:"node_id,omitempty"`
	Source string `json:"source"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

type ExecutionPaused struct {
	BaseEvent

	Status              string     `json:"status"`
	PausedNodes         []string   `json:"paused_nodes"`
	ContinueExecutionAt *time.Time `json:"continue_execution_at,omitempty"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	NodeID     string `json:"node_id,omitempty"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// ExecutionAdvanceRequested asks a worker to advance an execution.
type ExecutionAdvanceRequested struct {
	BaseEvent
}

func (e ExecutionAdvanceRequested) GetType() EventType {
	return ExecutionAdvanceRequestedEvent
}

// NodeNotification carries a message an action wants surfaced to a human,
// e.g. the prompt of a pause node.
type NodeNotification struct {
	BaseEvent

	NodeID  string         `json:"node_id"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e NodeNotification) GetType() EventType {
	return NodeNotificationEvent
}

func NewBaseEvent(eventType EventType, workflowID, projectID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ProjectID:   projectID,
		ExecutionID: executionID,
		Metadata:    make(map[string]any),
	}
}

// New returns an empty event value for the given type, or false when unknown.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case ExecutionStartedEvent:
		return &ExecutionStarted{}, true
	case ExecutionResumedEvent:
		return &ExecutionResumed{}, true
	case ExecutionPausedEvent:
		return &ExecutionPaused{}, true
	case ExecutionCompletedEvent:
		return &ExecutionCompleted{}, true
	case ExecutionFailedEvent:
		return &ExecutionFailed{}, true
	case ExecutionAdvanceRequestedEvent:
		return &ExecutionAdvanceRequested{}, true
	case NodeNotificationEvent:
		return &NodeNotification{}, true
	default:
		return nil, false
	}
}
