package exchange

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates auto_exchange actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "auto_exchange"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id":       map[string]any{"type": "string"},
			"product_id":     map[string]any{"type": "string"},
			"new_variant_id": map[string]any{"type": "string"},
			"reason":         map[string]any{"type": "string"},
		},
	}
}
