package transform

import (
	"context"
	"testing"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory()
	assert.Equal(t, "transform", factory.ID())

	_, err := factory.Create(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.True(t, protocol.IsValidationError(err))
}

func TestAction_Run_UsesNodeOutputsByDefault(t *testing.T) {
	action, err := NewAction(map[string]any{
		"expression": `{"user": "[[ .fetch.body.name ]]", "total": [[ len .fetch.body.items ]]}`,
	})
	require.NoError(t, err)

	out, err := action.Run(context.Background(), protocol.ActionContext{
		NodeOutputs: map[string]any{
			"fetch": map[string]any{
				"body": map[string]any{"name": "ana", "items": []any{1, 2, 3}},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ana", out["user"])
	assert.Equal(t, 3.0, out["total"])
}

func TestAction_Run_ExplicitInputAndScalarResult(t *testing.T) {
	action, err := NewAction(map[string]any{
		"input":      map[string]any{"first": "Ada", "last": "Lovelace"},
		"expression": "[[ .first ]] [[ .last ]]",
	})
	require.NoError(t, err)

	out, err := action.Run(context.Background(), protocol.ActionContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "Ada Lovelace"}, out)
}

func TestAction_Run_InvalidExpression(t *testing.T) {
	action, err := NewAction(map[string]any{"expression": "[[ .x"})
	require.NoError(t, err)

	_, err = action.Run(context.Background(), protocol.ActionContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrActionRuntime)

	out, err := action.MockRun(context.Background(), protocol.ActionContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "result")
}
