package workflow

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// Outcome is the classified result of one node dispatch.
type Outcome struct {
	Status     models.NodeStatus
	Output     map[string]any
	ContinueAt *time.Time
}

// Classify maps an action result to the node status it produces. Results of
// non-interrupting actions always succeed.
func Classify(ctx context.Context, action protocol.Action, input protocol.ActionContext, result map[string]any) (Outcome, error) {
	interrupting, ok := action.(protocol.InterruptingAction)
	if !ok {
		return Outcome{Status: models.NodeStatusSuccess, Output: result}, nil
	}

	classified, err := interrupting.ClassifyInterrupt(ctx, input, result)
	if err != nil {
		return Outcome{}, err
	}

	output := classified.Output
	if output == nil {
		output = result
	}

	switch classified.Kind {
	case protocol.InterruptSuccess:
		return Outcome{Status: models.NodeStatusSuccess, Output: output}, nil
	case protocol.InterruptNeedsInput:
		return Outcome{Status: models.NodeStatusNeedsInput, Output: output}, nil
	case protocol.InterruptScheduled:
		if classified.ContinueAt == nil {
			return Outcome{}, protocol.NewValidationError(input.NodeID, "scheduled interrupt without a wake time")
		}

		at := classified.ContinueAt.UTC()

		return Outcome{Status: models.NodeStatusScheduled, Output: output, ContinueAt: &at}, nil
	default:
		return Outcome{}, protocol.NewValidationError(input.NodeID, fmt.Sprintf("unknown interrupt kind '%s'", classified.Kind))
	}
}

// ResumeNode completes a paused node with externally supplied data and puts
// the execution back to RUNNING. It is the only transition out of
// NEEDS_INPUT and SCHEDULED; callers run it inside a version-checked write so
// that of two racing resumes exactly one applies and the other sees
// ErrAlreadyResumed.
func ResumeNode(execution *models.Execution, nodeID string, data map[string]any, now time.Time) error {
	node, ok := execution.Node(nodeID)
	if !ok {
		return ErrNodeNotFound
	}

	// A node already completed stays a no-op even once the execution has finished.
	switch {
	case node.ExecutionStatus == models.NodeStatusSuccess:
		return ErrAlreadyResumed
	case execution.Status.IsTerminal():
		return fmt.Errorf("%w: status is %s", ErrExecutionNotResumable, execution.Status)
	case !node.ExecutionStatus.IsPaused():
		return fmt.Errorf("%w: status is %s", ErrNodeNotPaused, node.ExecutionStatus)
	}

	output := make(map[string]any, len(node.Output)+len(data))
	maps.Copy(output, node.Output)
	maps.Copy(output, data)

	complete(node, output, now)

	execution.Status = models.ExecutionStatusRunning
	execution.ContinueExecutionAt = nil

	return nil
}

// completeDueNodes marks SCHEDULED nodes whose wake time has passed as
// SUCCESS, keeping the output they paused with. They are never re-run.
func completeDueNodes(execution *models.Execution, now time.Time) bool {
	changed := false

	for _, node := range execution.NodesByStatus(models.NodeStatusScheduled) {
		if node.ContinueAt != nil && !node.ContinueAt.After(now) {
			complete(node, node.Output, now)

			changed = true
		}
	}

	return changed
}

func complete(node *models.ExecutionNode, output map[string]any, now time.Time) {
	node.ExecutionStatus = models.NodeStatusSuccess
	node.Output = output
	node.ContinueAt = nil
	node.Error = ""
	node.CompletedAt = &now
}
