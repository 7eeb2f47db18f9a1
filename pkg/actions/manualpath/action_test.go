package manualpath

import (
	"context"
	"testing"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDecision(t *testing.T) *Action {
	t.Helper()

	action, err := NewAction(map[string]any{
		"message": "ship or refund?",
		"options": []any{
			map[string]any{"edge_id": "e-ship", "label": "Ship"},
			map[string]any{"edge_id": "e-refund", "label": "Refund"},
		},
	})
	require.NoError(t, err)

	return action
}

func TestAction_AlwaysNeedsInput(t *testing.T) {
	action := newDecision(t)

	out, err := action.Run(context.Background(), protocol.ActionContext{})
	require.NoError(t, err)
	assert.Len(t, out["options"], 2)
	assert.NotContains(t, out, models.PathsToTakeKey, "the decision is made on resume")

	result, err := action.ClassifyInterrupt(context.Background(), protocol.ActionContext{}, out)
	require.NoError(t, err)
	assert.Equal(t, protocol.InterruptNeedsInput, result.Kind)
}

func TestAction_ValidateResume(t *testing.T) {
	action := newDecision(t)
	ctx := context.Background()

	require.NoError(t, action.ValidateResume(ctx, map[string]any{models.PathsToTakeKey: []any{"e-refund"}}))
	require.NoError(t, action.ValidateResume(ctx, map[string]any{models.PathsToTakeKey: []string{}}))

	err := action.ValidateResume(ctx, map[string]any{models.PathsToTakeKey: []any{"e-other"}})
	require.Error(t, err)
	assert.True(t, protocol.IsValidationError(err))

	require.Error(t, action.ValidateResume(ctx, map[string]any{}))
}

func TestNewAction_InvalidOption(t *testing.T) {
	_, err := NewAction(map[string]any{"options": []any{map[string]any{"label": "x"}}})
	require.Error(t, err)
}
