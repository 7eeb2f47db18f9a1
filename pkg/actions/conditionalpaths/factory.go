package conditionalpaths

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates conditional path actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "conditional_paths"
}

func (*ActionFactory) Name() string {
	return "Conditional Paths"
}

func (*ActionFactory) Description() string {
	return "Evaluates one condition per outgoing edge and continues only along the edges whose condition holds."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paths": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"edge_id": map[string]any{"type": "string", "minLength": 1},
						"condition": map[string]any{
							"description": "Boolean, number or string rendered from a template. Missing means always.",
						},
					},
					"required": []string{"edge_id"},
				},
			},
			"default": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Edges taken when no condition holds.",
			},
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{modeAll, modeFirst},
				"default": modeAll,
			},
		},
		"required": []string{"paths"},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
