package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/deskflow/pkg/channels/gochannel"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub, slog.Default())
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversTriggerReceived(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.TriggerReceived, 1)

	require.NoError(t, bus.Handle(events.TriggerReceivedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.TriggerReceived)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	trigger := models.TriggerEvent{
		Type:   models.TriggerTypeShopifyEvent,
		Event:  "orders/create",
		UserID: "user-1",
		Data:   map[string]any{"order_total": 120.0},
	}
	require.NoError(t, bus.Publish(ctx, trigger.UserID, events.NewTriggerReceived(trigger)))

	select {
	case event := <-received:
		assert.Equal(t, events.TriggerReceivedEvent, event.Type)
		assert.Equal(t, "user-1", event.UserID)
		assert.Equal(t, trigger, event.Trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger was not delivered")
	}
}

func TestWatermillEventBus_RedeliversOnHandlerError(t *testing.T) {
	bus := newTestBus(t)

	var calls atomic.Int32

	done := make(chan struct{})

	require.NoError(t, bus.Handle(events.PlaybookExecutionRecordedEvent, func(_ context.Context, _ any) error {
		if calls.Add(1) == 1 {
			return errors.New("temporary failure")
		}

		close(done)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	execution := &models.PlaybookExecution{ID: "exec-1", PlaybookID: "pb-1", UserID: "user-1", Status: models.ExecutionStatusExecuted}
	require.NoError(t, bus.Publish(ctx, "user-1", events.NewPlaybookExecutionRecorded(execution)))

	select {
	case <-done:
		assert.Equal(t, int32(2), calls.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not redelivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
