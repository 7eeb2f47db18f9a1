package models

// NodeType represents the structural role of a node in the graph.
type NodeType string

const (
	NodeTypeTrigger     NodeType = "trigger"     // Entry point, implicitly successful when a run starts
	NodeTypeAction      NodeType = "action"      // Dispatched to a node action
	NodeTypePlaceholder NodeType = "placeholder" // Builder-only no-op, never dispatched
)

// EdgeType distinguishes real dependencies from builder scaffolding.
type EdgeType string

const (
	EdgeTypeWorkflow    EdgeType = "workflow"
	EdgeTypePlaceholder EdgeType = "placeholder"
)

// WorkflowNode represents a node instance in a workflow.
type WorkflowNode struct {
	ID        string         `json:"id"                   validate:"required"`
	Type      NodeType       `json:"type"                 validate:"required,oneof=trigger action placeholder"`
	Name      string         `json:"name,omitempty"`
	AppID     string         `json:"app_id,omitempty"`
	ActionID  string         `json:"action_id,omitempty"  validate:"required_if=Type action"`
	TriggerID string         `json:"trigger_id,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
}

// IsTrigger reports whether the node is the entry point of a workflow.
func (n *WorkflowNode) IsTrigger() bool {
	return n.Type == NodeTypeTrigger
}

// IsPlaceholder reports whether the node is a structural no-op.
func (n *WorkflowNode) IsPlaceholder() bool {
	return n.Type == NodeTypePlaceholder
}

// Edge connects two nodes.
type Edge struct {
	ID     string   `json:"id"     validate:"required"`
	Source string   `json:"source" validate:"required"`
	Target string   `json:"target" validate:"required"`
	Type   EdgeType `json:"type"   validate:"omitempty,oneof=workflow placeholder"`
}

// IsWorkflow reports whether the edge takes part in execution.
// An empty type is treated as a workflow edge.
func (e *Edge) IsWorkflow() bool {
	return e.Type == "" || e.Type == EdgeTypeWorkflow
}
