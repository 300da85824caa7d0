package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
playbooks:
  - name: High-value order
    trigger:
      type: shopify_event
      event: order_created
    conditions:
      - field: order_total
        operator: ">"
        value: 500
      - field: customer.tags
        operator: not_contains
        value: wholesale
    actions:
      - type: add_tag
        config:
          tags: [vip]
  - name: Refund request
    trigger:
      type: email_intent
      intent: refund_request
    conditions:
      - field: order_total
        operator: "<"
        value: 99.5
      - field: first_order
        operator: "=="
        value: true
    actions:
      - type: auto_refund
        config:
          percentage: 100
    confidence_threshold: 0.9
    requires_approval: true
    enabled: false
`

func TestParsePlaybooks(t *testing.T) {
	playbooks, err := ParsePlaybooks([]byte(sample))
	require.NoError(t, err)
	require.Len(t, playbooks, 2)

	vip := playbooks[0]
	assert.Equal(t, "High-value order", vip.Name)
	assert.Equal(t, models.Trigger{Type: models.TriggerTypeShopifyEvent, Config: models.TriggerConfig{Event: "order_created"}}, vip.Trigger)
	assert.Equal(t, []models.Condition{
		{Field: "order_total", Operator: models.OperatorGreaterThan, Value: "500"},
		{Field: "customer.tags", Operator: models.OperatorNotContains, Value: "wholesale"},
	}, vip.Conditions)
	assert.Equal(t, "add_tag", vip.Actions[0].Type)
	assert.Equal(t, []any{"vip"}, vip.Actions[0].Config["tags"])
	assert.InDelta(t, DefaultConfidenceThreshold, vip.ConfidenceThreshold, 1e-9)
	assert.True(t, vip.Enabled)

	refund := playbooks[1]
	assert.Equal(t, "99.5", refund.Conditions[0].Value)
	assert.Equal(t, "true", refund.Conditions[1].Value)
	assert.InDelta(t, 0.9, refund.ConfidenceThreshold, 1e-9)
	assert.True(t, refund.RequiresApproval)
	assert.False(t, refund.Enabled)
}

func TestParsePlaybooks_Errors(t *testing.T) {
	_, err := ParsePlaybooks([]byte("playbooks: []"))
	assert.ErrorIs(t, err, ErrNoPlaybooks)

	_, err = ParsePlaybooks([]byte("playbooks: [ {name: broken"))
	assert.Error(t, err)

	_, err = ParsePlaybooks([]byte(`
playbooks:
  - name: Nested value
    conditions:
      - field: order
        operator: "=="
        value: {id: 1}
`))
	assert.ErrorContains(t, err, "must be a scalar")
}

func TestLoadPlaybooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playbooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	playbooks, err := LoadPlaybooks(path)
	require.NoError(t, err)
	assert.Len(t, playbooks, 2)

	_, err = LoadPlaybooks(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
