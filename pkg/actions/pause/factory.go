package pause

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates pause actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "pause"
}

func (*ActionFactory) Name() string {
	return "Pause"
}

func (*ActionFactory) Description() string {
	return "Stops the execution until someone resumes it with resumeExecution set to true."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Shown to whoever has to resume the execution.",
			},
			ResumeKey: map[string]any{
				"type":        "boolean",
				"description": "Continue immediately without pausing.",
				"default":     false,
			},
		},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}
