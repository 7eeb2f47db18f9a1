package workflow

import (
	"maps"
	"time"

	"github.com/dukex/flowrun/pkg/actions/output"
	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/models"
)

// NewExecution creates a RUNNING execution. The trigger node starts SUCCESS
// with the input data as its output; every other node starts PENDING.
func NewExecution(workflow *models.Workflow, id string, input map[string]any, now time.Time) *models.Execution {
	if input == nil {
		input = map[string]any{}
	}

	execution := &models.Execution{
		ID:          id,
		WorkflowID:  workflow.ID,
		ProjectID:   workflow.ProjectID,
		Status:      models.ExecutionStatusRunning,
		TriggerData: input,
		Nodes:       make([]*models.ExecutionNode, 0, len(workflow.Nodes)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, node := range workflow.Nodes {
		executionNode := &models.ExecutionNode{ID: node.ID, ExecutionStatus: models.NodeStatusPending}

		if node.ID == workflow.TriggerNodeID {
			executionNode.ExecutionStatus = models.NodeStatusSuccess
			executionNode.Output = maps.Clone(input)
			executionNode.StartedAt = &now
			executionNode.CompletedAt = &now
		}

		execution.Nodes = append(execution.Nodes, executionNode)
	}

	return execution
}

// ensureNodes adds PENDING entries for graph nodes the execution does not track yet.
func ensureNodes(g *graph.Graph, execution *models.Execution) bool {
	changed := false

	for _, node := range g.Nodes() {
		if _, ok := execution.Node(node.ID); !ok {
			execution.Nodes = append(execution.Nodes, &models.ExecutionNode{
				ID:              node.ID,
				ExecutionStatus: models.NodeStatusPending,
			})

			changed = true
		}
	}

	return changed
}

// reclaimStale returns RUNNING nodes whose dispatch started before the cutoff
// to PENDING so a crashed worker does not block the execution forever.
func reclaimStale(execution *models.Execution, cutoff time.Time) []string {
	var reclaimed []string

	for _, node := range execution.NodesByStatus(models.NodeStatusRunning) {
		if node.StartedAt == nil || node.StartedAt.Before(cutoff) {
			node.ExecutionStatus = models.NodeStatusPending
			node.StartedAt = nil

			reclaimed = append(reclaimed, node.ID)
		}
	}

	return reclaimed
}

// settle decides the execution status once nothing more can be dispatched in
// this call. Precedence is FAILED, then NEEDS_INPUT, then SCHEDULED. It
// reports false, leaving the status alone, while another advancer still owns
// RUNNING nodes.
func settle(g *graph.Graph, execution *models.Execution, now time.Time) bool {
	var (
		failed           *models.ExecutionNode
		running, waiting int
		wake             *time.Time
	)

	for _, id := range g.TopologicalOrder() {
		node, ok := execution.Node(id)
		if !ok {
			continue
		}

		switch node.ExecutionStatus {
		case models.NodeStatusFailed:
			if failed == nil {
				failed = node
			}
		case models.NodeStatusRunning:
			running++
		case models.NodeStatusNeedsInput:
			waiting++
		case models.NodeStatusScheduled:
			if node.ContinueAt != nil && (wake == nil || node.ContinueAt.Before(*wake)) {
				at := *node.ContinueAt
				wake = &at
			}
		case models.NodeStatusPending, models.NodeStatusSuccess:
		}
	}

	execution.ContinueExecutionAt = nil

	switch {
	case failed != nil:
		execution.Status = models.ExecutionStatusFailed
		execution.ErrorMessage = "node " + failed.ID + ": " + failed.Error
		execution.CompletedAt = &now
	case running > 0:
		return false
	case waiting > 0:
		execution.Status = models.ExecutionStatusNeedsInput
	case wake != nil:
		execution.Status = models.ExecutionStatusScheduled
		execution.ContinueExecutionAt = wake
	default:
		execution.Status = models.ExecutionStatusSuccess
		execution.Output = executionOutput(g, execution)
		execution.CompletedAt = &now
	}

	return true
}

// executionOutput returns the result of the workflow's output node, or of the
// first node running the output action when none is designated.
func executionOutput(g *graph.Graph, execution *models.Execution) map[string]any {
	id := g.Workflow().OutputNodeID

	if id == "" {
		for _, node := range g.Nodes() {
			if node.ActionID == output.ActionID {
				id = node.ID

				break
			}
		}
	}

	if id == "" {
		return nil
	}

	node, ok := execution.Node(id)
	if !ok || node.ExecutionStatus != models.NodeStatusSuccess {
		return nil
	}

	return node.Output
}
