package workflow

import (
	"context"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/protocol"
)

// EventNotifier delivers action notifications as node.notification events.
type EventNotifier struct {
	publisher eventbus.EventPublisher
}

func NewEventNotifier(publisher eventbus.EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// Notify implements protocol.Notifier.
func (n *EventNotifier) Notify(ctx context.Context, notification protocol.Notification) error {
	return n.publisher.Publish(ctx, notification.ExecutionID, events.NodeNotification{
		BaseEvent: events.NewBaseEvent(
			events.NodeNotificationEvent,
			notification.WorkflowID,
			notification.ProjectID,
			notification.ExecutionID,
		),
		NodeID:  notification.NodeID,
		Kind:    notification.Kind,
		Message: notification.Message,
		Data:    notification.Data,
	})
}
