package notification

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates send_notification actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "send_notification"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

// Schema returns the JSON schema for the action configuration.
func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":    "string",
				"default": "dashboard",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Notification text. Supports templating against the trigger data.",
			},
			"webhook_url": map[string]any{
				"type":   "string",
				"format": "uri",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"timeout": map[string]any{"type": "number", "exclusiveMinimum": 0},
			"retry": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"attempts": map[string]any{"type": "integer", "minimum": 1},
					"delay":    map[string]any{"type": "number", "minimum": 0},
				},
			},
		},
		"required": []any{"message"},
	}
}
