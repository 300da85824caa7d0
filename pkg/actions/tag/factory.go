package tag

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates add_tag actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "add_tag"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"tag": map[string]any{"type": "string"},
			"target": map[string]any{
				"type":    "string",
				"enum":    []any{TargetOrder, TargetCustomer},
				"default": TargetOrder,
			},
		},
		"anyOf": []any{
			map[string]any{"required": []any{"tags"}},
			map[string]any{"required": []any{"tag"}},
		},
	}
}
