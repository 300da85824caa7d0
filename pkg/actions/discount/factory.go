package discount

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates create_discount actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "create_discount"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{
				"type":    "string",
				"enum":    []any{TypePercentage, TypeFixedAmount},
				"default": TypePercentage,
			},
			"value":           map[string]any{"type": "number", "exclusiveMinimum": 0},
			"code":            map[string]any{"type": "string"},
			"prefix":          map[string]any{"type": "string"},
			"expires_in_days": map[string]any{"type": "integer", "minimum": 1},
		},
	}
}
