package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	base := NewBaseEvent(ExecutionStartedEvent, "wf-1", "p-1", "exec-1")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, ExecutionStartedEvent, base.Type)
	assert.Equal(t, "exec-1", base.ExecutionID)
	assert.False(t, base.Timestamp.IsZero())
}

func TestNew_DecodesEveryEventType(t *testing.T) {
	published := []interface{ GetType() EventType }{
		ExecutionStarted{BaseEvent: NewBaseEvent(ExecutionStartedEvent, "wf", "p", "e")},
		ExecutionResumed{BaseEvent: NewBaseEvent(ExecutionResumedEvent, "wf", "p", "e"), NodeID: "n", Source: "manual"},
		ExecutionPaused{BaseEvent: NewBaseEvent(ExecutionPausedEvent, "wf", "p", "e"), Status: "NEEDS_INPUT"},
		ExecutionCompleted{BaseEvent: NewBaseEvent(ExecutionCompletedEvent, "wf", "p", "e")},
		ExecutionFailed{BaseEvent: NewBaseEvent(ExecutionFailedEvent, "wf", "p", "e"), Error: "boom"},
		ExecutionAdvanceRequested{BaseEvent: NewBaseEvent(ExecutionAdvanceRequestedEvent, "wf", "p", "e")},
		NodeNotification{BaseEvent: NewBaseEvent(NodeNotificationEvent, "wf", "p", "e"), NodeID: "n", Kind: "pause", Message: "approve?"},
	}

	for _, event := range published {
		t.Run(string(event.GetType()), func(t *testing.T) {
			payload, err := json.Marshal(event)
			require.NoError(t, err)

			target, ok := New(event.GetType())
			require.True(t, ok)
			require.NoError(t, json.Unmarshal(payload, target))

			decoded, ok := target.(interface{ GetType() EventType })
			require.True(t, ok)
			assert.Equal(t, event.GetType(), decoded.GetType())
		})
	}

	_, ok := New("unknown")
	assert.False(t, ok)
}
