// Package transform provides a data transformation action.
package transform

import (
	"context"
	"strings"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
)

const actionID = "transform"

// Action renders Expression against Input. Node configs are resolved with
// {{ }} before dispatch, so the expression uses [[ ]] delimiters to defer
// rendering until the action runs.
type Action struct {
	Input      any
	Expression string
}

func NewAction(config map[string]any) (*Action, error) {
	expression, _ := config["expression"].(string)
	if expression == "" {
		return nil, protocol.NewValidationError(actionID, "missing required field 'expression'")
	}

	return &Action{
		Input:      config["input"],
		Expression: expression,
	}, nil
}

func (a *Action) Run(_ context.Context, input protocol.ActionContext) (map[string]any, error) {
	data := a.Input
	if data == nil {
		data = input.NodeOutputs
	}

	expression := strings.NewReplacer("[[", "{{", "]]", "}}").Replace(a.Expression)

	result, err := template.Render(expression, data)
	if err != nil {
		return nil, protocol.NewRuntimeError(actionID, "transformation failed", err)
	}

	if m, ok := result.(map[string]any); ok {
		return m, nil
	}

	return map[string]any{"result": result}, nil
}

func (a *Action) MockRun(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	out, err := a.Run(ctx, input)
	if err != nil {
		return map[string]any{"result": nil}, nil //nolint:nilerr // mocks never fail on missing data
	}

	return out, nil
}
