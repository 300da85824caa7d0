package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAction_Defaults(t *testing.T) {
	action := NewAction(map[string]any{"message": "hi"})

	assert.Equal(t, "dashboard", action.Channel)
	assert.Equal(t, 1, action.Retry.Attempts)
	assert.Empty(t, action.WebhookURL)
}

func TestAction_Execute_LogOnly(t *testing.T) {
	action := NewAction(map[string]any{"message": "Order {{ .data.order_id }} needs review"})

	result, err := action.Execute(context.Background(), protocol.ActionContext{Data: map[string]any{"order_id": "1001"}}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "Order 1001 needs review", result["message"])
	assert.NotContains(t, result, "status_code")
}

func TestAction_Execute_Webhook(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	action := NewAction(map[string]any{
		"message":     "High value order",
		"channel":     "slack",
		"webhook_url": server.URL,
		"headers":     map[string]any{"X-Token": "secret"},
	})

	result, err := action.Execute(context.Background(), protocol.ActionContext{PlaybookID: "pb-1", UserID: "u-1"}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, result["status_code"])
	assert.Equal(t, "slack", received["channel"])
	assert.Equal(t, "pb-1", received["playbook_id"])
}

func TestAction_Execute_WebhookRetries(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	action := NewAction(map[string]any{
		"message":     "retry me",
		"webhook_url": server.URL,
		"retry":       map[string]any{"attempts": 3},
	})

	result, err := action.Execute(context.Background(), protocol.ActionContext{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result["status_code"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestAction_Execute_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	action := NewAction(map[string]any{"message": "boom", "webhook_url": server.URL})

	_, err := action.Execute(context.Background(), protocol.ActionContext{}, slog.Default())
	assert.ErrorIs(t, err, ErrWebhookFailed)
}

func TestAction_Execute_MissingMessage(t *testing.T) {
	_, err := NewAction(map[string]any{}).Execute(context.Background(), protocol.ActionContext{}, slog.Default())
	assert.ErrorIs(t, err, ErrMissingMessage)
}
