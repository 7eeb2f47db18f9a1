// Package webhooklistener provides an action that pauses until a webhook call arrives.
package webhooklistener

import (
	"context"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionID is the id webhook resumes look for when picking the node to resume.
const ActionID = "webhook_listener"

// WebhookPath is the route an execution's webhook is posted to.
func WebhookPath(executionID string) string {
	return "/webhooks/executions/" + executionID
}

type Action struct {
	Description string
}

func NewAction(config map[string]any) *Action {
	return &Action{Description: params.String(config, "description", "")}
}

func (a *Action) Run(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	out := map[string]any{
		"webhook_path": WebhookPath(input.ExecutionID),
		"description":  a.Description,
	}

	err := input.Services.Notify(ctx, input.Notification(ActionID, "Waiting for webhook", out))
	if err != nil {
		input.Log().WarnContext(ctx, "Failed to send webhook notification", "error", err)
	}

	return out, nil
}

func (a *Action) MockRun(_ context.Context, input protocol.ActionContext) (map[string]any, error) {
	return map[string]any{"webhook_path": WebhookPath(input.ExecutionID)}, nil
}

func (a *Action) ClassifyInterrupt(_ context.Context, _ protocol.ActionContext, result map[string]any) (protocol.InterruptResult, error) {
	return protocol.NeedsInput(result), nil
}
