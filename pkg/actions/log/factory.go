package log

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates log actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "log"
}

func (*ActionFactory) Name() string {
	return "Log"
}

func (*ActionFactory) Description() string {
	return "Writes a message to the worker log and passes it on as output."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating.",
				"examples": []string{
					"Order {{ .trigger.order_id }} received",
				},
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "warn", "error"},
				"default": "info",
			},
		},
		"required": []string{"message"},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}
