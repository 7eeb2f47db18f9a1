package models

import (
	"time"
)

// ExecutionStatus represents the run-level state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning    ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess    ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed     ExecutionStatus = "FAILED"
	ExecutionStatusNeedsInput ExecutionStatus = "NEEDS_INPUT"
	ExecutionStatusScheduled  ExecutionStatus = "SCHEDULED"
)

// IsTerminal reports whether no further advancement is possible.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed
}

// IsPaused reports whether the execution waits for an external resume or wake.
func (s ExecutionStatus) IsPaused() bool {
	return s == ExecutionStatusNeedsInput || s == ExecutionStatusScheduled
}

// NodeStatus represents the runtime state of one node within an execution.
type NodeStatus string

const (
	NodeStatusPending    NodeStatus = "PENDING"
	NodeStatusRunning    NodeStatus = "RUNNING"
	NodeStatusSuccess    NodeStatus = "SUCCESS"
	NodeStatusFailed     NodeStatus = "FAILED"
	NodeStatusNeedsInput NodeStatus = "NEEDS_INPUT"
	NodeStatusScheduled  NodeStatus = "SCHEDULED" // completed on wake, never re-run
)

// IsPaused reports whether the node waits for an external resume or wake.
func (s NodeStatus) IsPaused() bool {
	return s == NodeStatusNeedsInput || s == NodeStatusScheduled
}

// PathsToTakeKey is the output field holding the outgoing edge ids to follow.
const PathsToTakeKey = "pathsToTake"

// Execution is one run of a workflow. All runner state lives here.
type Execution struct {
	ID                  string           `json:"id"`
	WorkflowID          string           `json:"workflow_id"`
	ProjectID           string           `json:"project_id"`
	Status              ExecutionStatus  `json:"status"`
	ContinueExecutionAt *time.Time       `json:"continue_execution_at"`
	Output              map[string]any   `json:"output"`
	TriggerData         map[string]any   `json:"trigger_data,omitempty"`
	Nodes               []*ExecutionNode `json:"nodes"`
	ErrorMessage        string           `json:"error_message,omitempty"`
	Version             int64            `json:"version"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
}

// ExecutionNode is the per-execution runtime copy of a graph node.
type ExecutionNode struct {
	ID              string         `json:"id"`
	ExecutionStatus NodeStatus     `json:"execution_status"`
	Output          map[string]any `json:"output"`
	Error           string         `json:"error,omitempty"`
	ContinueAt      *time.Time     `json:"continue_at,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// Node returns the execution node with the given id.
func (e *Execution) Node(id string) (*ExecutionNode, bool) {
	for _, node := range e.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// NodesByStatus returns every execution node currently in one of the given statuses.
func (e *Execution) NodesByStatus(statuses ...NodeStatus) []*ExecutionNode {
	var out []*ExecutionNode

	for _, node := range e.Nodes {
		for _, status := range statuses {
			if node.ExecutionStatus == status {
				out = append(out, node)

				break
			}
		}
	}

	return out
}

// Outputs returns the outputs of every successful node keyed by node id.
func (e *Execution) Outputs() map[string]any {
	outputs := make(map[string]any, len(e.Nodes))

	for _, node := range e.Nodes {
		if node.ExecutionStatus == NodeStatusSuccess {
			outputs[node.ID] = node.Output
		}
	}

	return outputs
}

// Clone returns a deep copy of the execution's mutable state.
// Output maps are shared as they are replaced, never mutated in place.
func (e *Execution) Clone() *Execution {
	clone := *e
	clone.Nodes = make([]*ExecutionNode, len(e.Nodes))

	for i, node := range e.Nodes {
		n := *node
		clone.Nodes[i] = &n
	}

	return &clone
}

// PathsToTake returns the authoritative outgoing edge ids of a node, and
// whether the node restricted them at all.
func (n *ExecutionNode) PathsToTake() ([]string, bool) {
	if n.Output == nil {
		return nil, false
	}

	raw, ok := n.Output[PathsToTakeKey]
	if !ok || raw == nil {
		return nil, false
	}

	switch paths := raw.(type) {
	case []string:
		return paths, true
	case []any:
		out := make([]string, 0, len(paths))

		for _, p := range paths {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}

		return out, true
	case string:
		return []string{paths}, true
	default:
		return []string{}, true
	}
}
