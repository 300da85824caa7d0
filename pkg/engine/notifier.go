package engine

import (
	"context"

	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/models"
)

// Notifier is told about every execution row after it is recorded.
type Notifier interface {
	Notify(ctx context.Context, execution *models.PlaybookExecution) error
}

// Deduplicator claims idempotency keys. Release gives a key back when the trigger could not be processed.
type Deduplicator interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventNotifier publishes PlaybookExecutionRecorded events keyed by user.
type EventNotifier struct {
	publisher eventbus.EventPublisher
}

func NewEventNotifier(publisher eventbus.EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

func (n *EventNotifier) Notify(ctx context.Context, execution *models.PlaybookExecution) error {
	return n.publisher.Publish(ctx, execution.UserID, events.NewPlaybookExecutionRecorded(execution))
}
