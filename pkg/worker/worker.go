// Package worker consumes queued triggers from the event bus and runs them through the orchestrator.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/deskflow/pkg/engine"
	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/models"
)

// Executor runs a trigger. Implemented by engine.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error)
}

type Worker struct {
	id       string
	executor Executor
	eventBus eventbus.EventSubscriber
	logger   *slog.Logger
}

func New(id string, executor Executor, eventBus eventbus.EventSubscriber, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		executor: executor,
		eventBus: eventBus,
		logger:   logger.With("module", "worker", "worker_id", id),
	}
}

// Start registers the trigger handler and begins consuming. It returns once the subscription is running.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	err := w.eventBus.Handle(events.TriggerReceivedEvent, w.HandleTriggerReceived)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	return nil
}

// HandleTriggerReceived runs one queued trigger. Returning an error asks the bus to redeliver it,
// so only failures a retry can fix are returned.
func (w *Worker) HandleTriggerReceived(ctx context.Context, event any) error {
	received, ok := event.(*events.TriggerReceived)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerReceived")

		return nil
	}

	logger := w.logger.With(
		"event_id", received.ID,
		"user_id", received.Trigger.UserID,
		"trigger_type", received.Trigger.Type,
	)
	logger.InfoContext(ctx, "Processing trigger")

	response, err := w.executor.Execute(ctx, received.Trigger)

	switch {
	case err == nil:
		logger.InfoContext(ctx, "Trigger processed", "matched", response.Matched)

		return nil
	case errors.Is(err, engine.ErrDuplicateTrigger):
		logger.InfoContext(ctx, "Skipping duplicate trigger", "idempotency_key", received.Trigger.IdempotencyKey)

		return nil
	case errors.Is(err, engine.ErrMissingUserID):
		logger.ErrorContext(ctx, "Dropping trigger without user", "error", err)

		return nil
	default:
		logger.ErrorContext(ctx, "Failed to process trigger", "error", err)

		return err
	}
}
