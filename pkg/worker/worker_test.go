package worker_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/deskflow/pkg/channels/gochannel"
	"github.com/dukex/deskflow/pkg/engine"
	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFunc func(ctx context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error)

func (f executorFunc) Execute(ctx context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error) {
	return f(ctx, trigger)
}

func trigger() models.TriggerEvent {
	return models.TriggerEvent{
		Type:   models.TriggerTypeShopifyEvent,
		Event:  "order_created",
		UserID: "user-1",
		Data:   map[string]any{"order_total": 600.0},
	}
}

func TestWorker_HandleTriggerReceived(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "success"},
		{name: "duplicate trigger is acknowledged", err: engine.ErrDuplicateTrigger},
		{name: "missing user is dropped", err: engine.ErrMissingUserID},
		{name: "load failure is retried", err: fmt.Errorf("%w: db down", engine.ErrLoadPlaybooks), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.TriggerEvent

			w := worker.New("worker-1", executorFunc(func(_ context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error) {
				got = trigger
				if tt.err != nil {
					return nil, tt.err
				}

				return &models.ExecutionResponse{Matched: 1}, nil
			}), nil, slog.Default())

			event := events.NewTriggerReceived(trigger())
			err := w.HandleTriggerReceived(context.Background(), &event)

			if tt.wantErr {
				assert.ErrorIs(t, err, engine.ErrLoadPlaybooks)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, trigger(), got)
		})
	}
}

func TestWorker_IgnoresUnexpectedEvents(t *testing.T) {
	w := worker.New("worker-1", executorFunc(func(context.Context, models.TriggerEvent) (*models.ExecutionResponse, error) {
		return nil, errors.New("must not run")
	}), nil, slog.Default())

	assert.NoError(t, w.HandleTriggerReceived(context.Background(), "not an event"))
}

func TestWorker_ConsumesFromEventBus(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.Default())

	defer func() {
		_ = bus.Close()
	}()

	received := make(chan models.TriggerEvent, 1)

	w := worker.New("worker-1", executorFunc(func(_ context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error) {
		received <- trigger

		return &models.ExecutionResponse{}, nil
	}), bus, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, bus.Publish(ctx, "user-1", events.NewTriggerReceived(trigger())))

	select {
	case got := <-received:
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "order_created", got.Event)
	case <-time.After(5 * time.Second):
		t.Fatal("trigger was not consumed")
	}
}
