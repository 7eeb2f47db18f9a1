package manualpath

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates manual path decision actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "manual_path_decision"
}

func (*ActionFactory) Name() string {
	return "Manual Path Decision"
}

func (*ActionFactory) Description() string {
	return "Stops the execution until a person picks which outgoing edges to follow."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type": "string",
			},
			"options": map[string]any{
				"type":        "array",
				"description": "Edges a person may choose from. Empty allows any outgoing edge.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"edge_id": map[string]any{"type": "string", "minLength": 1},
						"label":   map[string]any{"type": "string"},
					},
					"required": []string{"edge_id"},
				},
			},
		},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
