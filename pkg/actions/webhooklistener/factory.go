package webhooklistener

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates webhook listener actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return ActionID
}

func (*ActionFactory) Name() string {
	return "Webhook Listener"
}

func (*ActionFactory) Description() string {
	return "Stops the execution until an HTTP request is posted to the execution's webhook URL."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{
				"type": "string",
			},
		},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}
