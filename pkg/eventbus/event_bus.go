// Package eventbus carries execution events between the API and workers.
package eventbus

import (
	"context"

	"github.com/dukex/flowrun/pkg/events"
)

// Event is anything published on the bus; its type selects the handler.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes execution events. key is the execution ID, so
// partitioned transports keep one execution's events in order.
type EventPublisher interface {
	Publish(ctx context.Context, executionID string, event Event) error
}

type EventSubscriber interface {
	// Handle replaces any handler for eventType. Events without a handler are acked and dropped.
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event, a pointer to the type registered in events.New.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
