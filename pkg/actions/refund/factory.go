package refund

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates auto_refund actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "auto_refund"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

// Schema returns the JSON schema for the action configuration.
func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"amount": map[string]any{
				"type":        "number",
				"minimum":     0,
				"description": "Fixed amount to refund. Defaults to a percentage of the order total.",
			},
			"percentage": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 100,
				"default": 100,
			},
			"reason":   map[string]any{"type": "string"},
			"currency": map[string]any{"type": "string"},
			"order_id": map[string]any{"type": "string"},
		},
	}
}
