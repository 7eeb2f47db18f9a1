// Package web provides HTTP request and response types for the execution API.
package web

import (
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// WorkflowRequest is the body of create and update workflow calls.
// The graph itself is checked by the workflow service.
type WorkflowRequest struct {
	ProjectID     string                 `json:"project_id"               validate:"required"`
	Name          string                 `json:"name"                     validate:"required,min=1"`
	Description   string                 `json:"description"`
	Nodes         []*models.WorkflowNode `json:"nodes"                    validate:"required,min=1"`
	Edges         []*models.Edge         `json:"edges"`
	TriggerNodeID string                 `json:"trigger_node_id"          validate:"required"`
	OutputNodeID  string                 `json:"output_node_id,omitempty"`
	Variables     map[string]any         `json:"variables,omitempty"`
}

func (r WorkflowRequest) toModel() *models.Workflow {
	edges := r.Edges
	if edges == nil {
		edges = []*models.Edge{}
	}

	return &models.Workflow{
		ProjectID:     r.ProjectID,
		Name:          r.Name,
		Description:   r.Description,
		Nodes:         r.Nodes,
		Edges:         edges,
		TriggerNodeID: r.TriggerNodeID,
		OutputNodeID:  r.OutputNodeID,
		Variables:     r.Variables,
	}
}

// StartExecutionRequest carries the trigger input of a new execution.
type StartExecutionRequest struct {
	Input map[string]any `json:"input"`
}

// StartExecutionResponse is returned when an execution is started.
type StartExecutionResponse struct {
	ExecutionID string            `json:"execution_id"`
	Execution   *models.Execution `json:"execution"`
}

// ResumeNodeRequest carries the data merged into a paused node's output.
type ResumeNodeRequest struct {
	Data map[string]any `json:"data"`
}

// PathDecisionRequest selects the outgoing edges of a manual path decision.
// An empty list ends the branch.
type PathDecisionRequest struct {
	PathsToTake []string `json:"paths_to_take" validate:"required,dive,required"`
}

// ActionResponse describes a registered action.
type ActionResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// TransformActionResponse converts a factory into its API description.
func TransformActionResponse(factory protocol.ActionFactory) ActionResponse {
	return ActionResponse{
		ID:          factory.ID(),
		Name:        factory.Name(),
		Description: factory.Description(),
		Schema:      factory.Schema(),
	}
}
