package restock

import "github.com/dukex/deskflow/pkg/protocol"

// ActionFactory creates restock_product actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "restock_product"
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_id": map[string]any{"type": "string"},
			"quantity": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": defaultQuantity,
			},
			"supplier": map[string]any{"type": "string"},
		},
	}
}
