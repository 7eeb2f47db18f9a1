// Package output provides the action whose result becomes the execution output.
package output

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionID marks a node as the execution's output when the workflow names none.
const ActionID = "output"

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string          { return ActionID }
func (*ActionFactory) Name() string        { return "Output" }
func (*ActionFactory) Description() string { return "Sets the value returned by the execution." }

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{
				"description": "Any JSON value. Objects are returned as is, other values under 'value'.",
			},
		},
		"required": []string{"value"},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return &Action{Value: config["value"]}, nil
}

type Action struct {
	Value any
}

func (a *Action) Run(context.Context, protocol.ActionContext) (map[string]any, error) {
	if m, ok := a.Value.(map[string]any); ok {
		return m, nil
	}

	return map[string]any{"value": a.Value}, nil
}

func (a *Action) MockRun(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	return a.Run(ctx, input)
}
