// Package testutil provides workflow builders for tests.
package testutil

import "github.com/dukex/flowrun/pkg/models"

// TriggerNodeID is the id of the trigger node NewWorkflow adds.
const TriggerNodeID = "trigger"

// NewWorkflow builds a workflow in project-1 whose entry point is a manual
// trigger node followed by nodes.
func NewWorkflow(id string, nodes []*models.WorkflowNode, edges []*models.Edge) *models.Workflow {
	return &models.Workflow{
		ID:            id,
		ProjectID:     "project-1",
		Name:          id,
		TriggerNodeID: TriggerNodeID,
		Nodes:         append([]*models.WorkflowNode{TriggerNode()}, nodes...),
		Edges:         edges,
	}
}

func TriggerNode() *models.WorkflowNode {
	return &models.WorkflowNode{ID: TriggerNodeID, Type: models.NodeTypeTrigger, TriggerID: "manual"}
}

func ActionNode(id, actionID string, config map[string]any) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, Type: models.NodeTypeAction, ActionID: actionID, Config: config}
}

func Edge(id, source, target string) *models.Edge {
	return &models.Edge{ID: id, Source: source, Target: target, Type: models.EdgeTypeWorkflow}
}
