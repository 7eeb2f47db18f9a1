package webhooklistener

import (
	"context"
	"testing"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_WaitsForWebhook(t *testing.T) {
	action := NewAction(map[string]any{"description": "payment callback"})
	input := protocol.ActionContext{ExecutionID: "exec-9"}

	out, err := action.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "/webhooks/executions/exec-9", out["webhook_path"])

	result, err := action.ClassifyInterrupt(context.Background(), input, out)
	require.NoError(t, err)
	assert.Equal(t, protocol.InterruptNeedsInput, result.Kind)
	assert.Equal(t, out, result.Output)
}
