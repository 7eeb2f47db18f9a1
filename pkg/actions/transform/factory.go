package transform

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

type ActionFactory struct{}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (*ActionFactory) ID() string {
	return "transform"
}

func (*ActionFactory) Name() string {
	return "Transform"
}

func (*ActionFactory) Description() string {
	return "Builds a new value from trigger data and node outputs. " +
		"The expression is rendered against the input, or against every node output when input is empty."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"description": "Data the expression is rendered against. Defaults to the outputs of every finished node.",
			},
			"expression": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Template rendered against the input. JSON results become objects.",
				"examples": []string{
					`[[ .name ]]`,
					`{"fullName": "[[ .first ]] [[ .last ]]"}`,
				},
			},
		},
		"required": []string{"expression"},
	}
}
