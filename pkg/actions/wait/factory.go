package wait

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates wait actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "wait"
}

func (*ActionFactory) Name() string {
	return "Wait"
}

func (*ActionFactory) Description() string {
	return "Delays the execution. Short waits happen inside the worker, long ones are scheduled."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        []string{"string", "number"},
				"description": "Go duration such as \"90s\" or \"36h\", or a number of seconds.",
				"examples":    []any{"5s", "2h", 30},
			},
		},
		"required": []string{"duration"},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
