package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowrun/pkg/channels/gochannel"
	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub := gochannel.CreateChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	defer func() {
		_ = bus.Close()
	}()

	received := make(chan *events.ExecutionResumed, 1)

	require.NoError(t, bus.Handle(events.ExecutionResumedEvent, func(_ context.Context, event any) error {
		resumed, ok := event.(*events.ExecutionResumed)
		if !ok {
			return errors.New("unexpected event type")
		}

		received <- resumed

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// unhandled types are acked and dropped
	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1", "p-1", "exec-1"),
	}))

	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionResumed{
		BaseEvent: events.NewBaseEvent(events.ExecutionResumedEvent, "wf-1", "p-1", "exec-1"),
		NodeID:    "approve",
		Source:    "manual",
	}))

	select {
	case event := <-received:
		assert.Equal(t, "exec-1", event.ExecutionID)
		assert.Equal(t, "approve", event.NodeID)
		assert.Equal(t, "manual", event.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub := gochannel.CreateChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
	require.NoError(t, bus.Close())
}
