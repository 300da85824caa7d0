package email

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory()
	assert.Equal(t, "send_email", factory.ID())
	assert.Equal(t, []any{"subject"}, factory.Schema()["required"])
}

func TestAction_Execute_RendersTemplates(t *testing.T) {
	action := NewAction(map[string]any{
		"subject": "Refund for order {{ .data.order_id }}",
		"body":    `Hi {{ field .data "customer.first_name" }}, thanks for shopping at {{ .shop_domain }}.`,
	})

	result, err := action.Execute(context.Background(), protocol.ActionContext{
		ShopDomain: "demo.myshopify.com",
		Data: map[string]any{
			"order_id": "1001",
			"customer": map[string]any{"first_name": "Jane", "email": "jane@example.com"},
		},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, true, result["success"])
	assert.Equal(t, "jane@example.com", result["to"])
	assert.Equal(t, "Refund for order 1001", result["subject"])
	assert.Equal(t, "Hi Jane, thanks for shopping at demo.myshopify.com.", result["body"])
	assert.Contains(t, result["message_id"], "msg_")
}

func TestAction_Execute_ConfiguredRecipient(t *testing.T) {
	action := NewAction(map[string]any{"to": "support@example.com", "subject": "Heads up"})

	result, err := action.Execute(context.Background(), protocol.ActionContext{Data: map[string]any{}}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "support@example.com", result["to"])
}

func TestAction_Execute_MissingRecipient(t *testing.T) {
	action := NewAction(map[string]any{"subject": "Hello"})

	_, err := action.Execute(context.Background(), protocol.ActionContext{Data: map[string]any{}}, slog.Default())
	assert.ErrorIs(t, err, ErrMissingRecipient)
}

func TestAction_Execute_BrokenTemplate(t *testing.T) {
	action := NewAction(map[string]any{"to": "a@b.c", "subject": "{{ .data.order_id "})

	_, err := action.Execute(context.Background(), protocol.ActionContext{Data: map[string]any{}}, slog.Default())
	assert.Error(t, err)
}
