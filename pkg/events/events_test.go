package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTriggerReceived(t *testing.T) {
	trigger := models.TriggerEvent{
		Type:   models.TriggerTypeShopifyEvent,
		Event:  "order_created",
		UserID: "user-1",
		Data:   map[string]any{"order_total": 120.0},
	}

	event := NewTriggerReceived(trigger)

	assert.Equal(t, TriggerReceivedEvent, event.GetType())
	assert.Equal(t, TriggerReceivedEvent, event.Type)
	assert.Equal(t, "user-1", event.UserID)
	assert.NotEmpty(t, event.ID)

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded TriggerReceived
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, trigger, decoded.Trigger)
}

func TestNewPlaybookExecutionRecorded(t *testing.T) {
	confidence := 0.85
	execution := &models.PlaybookExecution{
		ID:         "exec-1",
		PlaybookID: "pb-1",
		UserID:     "user-1",
		Status:     models.ExecutionStatusPending,
		Confidence: &confidence,
		Reason:     "Manual approval required",
	}

	event := NewPlaybookExecutionRecorded(execution)

	assert.Equal(t, PlaybookExecutionRecordedEvent, event.GetType())
	assert.Equal(t, "exec-1", event.ExecutionID)
	assert.Equal(t, "pb-1", event.PlaybookID)
	assert.Equal(t, models.ExecutionStatusPending, event.Status)
	assert.Equal(t, &confidence, event.Confidence)
	assert.Equal(t, "Manual approval required", event.Reason)
}
