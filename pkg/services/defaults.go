package services

import (
	"context"
	"fmt"

	"github.com/dukex/deskflow/pkg/models"
)

// DefaultPlaybooks returns the templates every new account starts with. They are created disabled.
func DefaultPlaybooks() []models.Playbook {
	return []models.Playbook{
		{
			Name:        "Refund request",
			Description: "Refund small orders when a customer asks for their money back",
			Trigger: models.Trigger{
				Type:   models.TriggerTypeEmailIntent,
				Config: models.TriggerConfig{Intent: "refund_request"},
			},
			Conditions: []models.Condition{
				{Field: "order_total", Operator: models.OperatorLessThan, Value: "100"},
			},
			Actions: []models.ActionItem{
				{Type: "auto_refund", Config: map[string]any{"percentage": 100}},
				{Type: "send_email", Config: map[string]any{
					"subject": "Your refund is on its way",
					"body":    `Hi {{ default "there" .data.customer.first_name }}, we refunded your order {{ .data.order_id }}.`,
				}},
			},
			ConfidenceThreshold: 0.9,
			RequiresApproval:    true,
		},
		{
			Name:        "High-value order",
			Description: "Tag big orders and let the team know",
			Trigger: models.Trigger{
				Type:   models.TriggerTypeShopifyEvent,
				Config: models.TriggerConfig{Event: "order_created"},
			},
			Conditions: []models.Condition{
				{Field: "order_total", Operator: models.OperatorGreaterThan, Value: "500"},
			},
			Actions: []models.ActionItem{
				{Type: "add_tag", Config: map[string]any{"tags": []any{"vip", "high-value"}}},
				{Type: "send_notification", Config: map[string]any{
					"message": "High-value order {{ .data.order_id }} from {{ .shop_domain }}",
				}},
			},
			ConfidenceThreshold: 0.8,
		},
		{
			Name:        "Low stock restock",
			Description: "Reorder a product when inventory drops below five units",
			Trigger: models.Trigger{
				Type:   models.TriggerTypeShopifyEvent,
				Config: models.TriggerConfig{Event: "inventory_levels_update"},
			},
			Conditions: []models.Condition{
				{Field: "available", Operator: models.OperatorLessThan, Value: "5"},
			},
			Actions: []models.ActionItem{
				{Type: "restock_product", Config: map[string]any{"quantity": 25}},
			},
			ConfidenceThreshold: 0.8,
		},
		{
			Name:        "Weekly restock review",
			Description: "Monday morning reminder to review inventory",
			Trigger: models.Trigger{
				Type:   models.TriggerTypeScheduled,
				Config: models.TriggerConfig{Cron: "0 9 * * 1"},
			},
			Actions: []models.ActionItem{
				{Type: "send_notification", Config: map[string]any{
					"message": "Weekly restock review: check low inventory items",
				}},
			},
			ConfidenceThreshold: 0.8,
		},
	}
}

// SeedDefaults creates the default templates userID does not have yet and returns the created ones.
func (p *Playbooks) SeedDefaults(ctx context.Context, userID string) ([]*models.Playbook, error) {
	existing, err := p.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	seeded := make(map[string]bool, len(existing))

	for _, playbook := range existing {
		if playbook.IsDefault {
			seeded[playbook.Name] = true
		}
	}

	created := make([]*models.Playbook, 0)

	for _, template := range DefaultPlaybooks() {
		if seeded[template.Name] {
			continue
		}

		playbook := template
		playbook.IsDefault = true
		playbook.Enabled = false

		saved, err := p.Create(ctx, userID, &playbook)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %q: %w", template.Name, err)
		}

		created = append(created, saved)
	}

	return created, nil
}
