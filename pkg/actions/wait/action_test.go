package wait

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_ShortWaitCompletesInline(t *testing.T) {
	action, err := NewAction(map[string]any{"duration": "20ms"})
	require.NoError(t, err)

	started := time.Now()

	out, err := action.Run(context.Background(), protocol.ActionContext{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)

	result, err := action.ClassifyInterrupt(context.Background(), protocol.ActionContext{}, out)
	require.NoError(t, err)
	assert.Equal(t, protocol.InterruptSuccess, result.Kind)
	assert.Nil(t, result.ContinueAt)
}

func TestAction_LongWaitIsScheduled(t *testing.T) {
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	input := protocol.ActionContext{Services: protocol.Services{Now: func() time.Time { return now }}}

	action, err := NewAction(map[string]any{"duration": 121.0})
	require.NoError(t, err)

	out, err := action.Run(context.Background(), input)
	require.NoError(t, err)

	result, err := action.ClassifyInterrupt(context.Background(), input, out)
	require.NoError(t, err)
	assert.Equal(t, protocol.InterruptScheduled, result.Kind)
	require.NotNil(t, result.ContinueAt)
	assert.Equal(t, now.Add(121*time.Second), *result.ContinueAt)
}

func TestAction_ThresholdIsInclusive(t *testing.T) {
	action, err := NewAction(map[string]any{"duration": "120s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a 120s wait is held inline, so a cancelled context interrupts it
	_, err = action.Run(ctx, protocol.ActionContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAction_InvalidDuration(t *testing.T) {
	_, err := NewAction(map[string]any{"duration": "later"})
	require.Error(t, err)
	assert.True(t, protocol.IsValidationError(err))
}
