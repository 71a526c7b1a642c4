// Package eventbus provides publish/subscribe of flow lifecycle events.
package eventbus

import (
	"context"

	"github.com/dukex/flowbuilder/pkg/events"
)

// Event is any flow lifecycle event that can be published.
type Event interface {
	GetType() events.EventType
}

// EventPublisher announces flow lifecycle events. The key is the flow id, so
// events of one flow keep their order on partitioned transports.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches received events to one handler per event type.
// Handlers must be registered before Subscribe is called.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the concrete event struct, for example
// *events.FlowSaved. A returned error nacks the message.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
