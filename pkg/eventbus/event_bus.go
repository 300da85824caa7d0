// Package eventbus carries deskflow events between the API, workers and the scheduler.
package eventbus

import (
	"context"

	"github.com/dukex/deskflow/pkg/events"
)

// Event is anything published on the bus. The type routes it to a Handler on the consuming side.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events. key orders delivery: events sharing a key are consumed in publish order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// Handler receives a pointer to the decoded event, e.g. *events.TriggerReceived.
// A returned error requests redelivery.
type Handler func(ctx context.Context, event any) error

type EventSubscriber interface {
	// Handle registers the handler of one event type. Events without a handler are acknowledged and dropped.
	Handle(eventType events.EventType, handler Handler) error
	// Subscribe starts delivering to the registered handlers until ctx is done.
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber

	Close() error
}
