package email

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates send_email actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "send_email"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

// Schema returns the JSON schema for the action configuration.
func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient. Defaults to the customer e-mail of the trigger.",
			},
			"subject": map[string]any{
				"type": "string",
				"examples": []string{
					"Your refund for order {{ .data.order_id }}",
				},
			},
			"body": map[string]any{
				"type": "string",
				"examples": []string{
					`Hi {{ field .data "customer.first_name" }}, we received your request.`,
				},
			},
			"template": map[string]any{"type": "string"},
			"reply_to": map[string]any{"type": "string"},
		},
		"required": []any{"subject"},
	}
}
