// Package models defines the core domain models for durable workflow execution
package models

import "time"

// Workflow is the immutable graph template a run is created from.
// It is mutated only by the builder and is read-only to the runner.
type Workflow struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"              validate:"required"`
	Name          string          `json:"name"                    validate:"required,min=1"`
	Description   string          `json:"description,omitempty"`
	Nodes         []*WorkflowNode `json:"nodes"                   validate:"required,min=1,dive"`
	Edges         []*Edge         `json:"edges"                   validate:"dive"`
	TriggerNodeID string          `json:"trigger_node_id"         validate:"required"`
	OutputNodeID  string          `json:"output_node_id,omitempty"`
	Variables     map[string]any  `json:"variables,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// FindNode returns the workflow node with the given id.
func (w *Workflow) FindNode(id string) (*WorkflowNode, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}
