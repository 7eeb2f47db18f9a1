// Package pause provides an action that waits for a human to resume the execution.
package pause

import (
	"context"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	actionID = "pause"

	// ResumeKey must be true in the resume data for the node to continue.
	ResumeKey = "resumeExecution"
)

type Action struct {
	Message     string
	SkipPausing bool
}

func NewAction(config map[string]any) *Action {
	return &Action{
		Message:     params.String(config, "message", "Execution paused"),
		SkipPausing: params.Bool(config, ResumeKey),
	}
}

func (a *Action) Run(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	if !a.SkipPausing {
		err := input.Services.Notify(ctx, input.Notification(actionID, a.Message, nil))
		if err != nil {
			input.Log().WarnContext(ctx, "Failed to send pause notification", "error", err)
		}
	}

	return a.output(), nil
}

func (a *Action) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return a.output(), nil
}

func (a *Action) ClassifyInterrupt(_ context.Context, _ protocol.ActionContext, result map[string]any) (protocol.InterruptResult, error) {
	if a.SkipPausing {
		return protocol.Success(result), nil
	}

	return protocol.NeedsInput(result), nil
}

// ValidateResume rejects resume data that does not set resumeExecution to true.
func (a *Action) ValidateResume(_ context.Context, data map[string]any) error {
	if !params.Bool(data, ResumeKey) {
		return protocol.NewValidationError(actionID, "resume data must set '"+ResumeKey+"' to true")
	}

	return nil
}

func (a *Action) output() map[string]any {
	return map[string]any{"message": a.Message}
}
