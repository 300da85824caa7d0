// Package exchange provides the auto_exchange action.
package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
)

// Action swaps a line item of an order for another variant.
type Action struct {
	ProductID    string
	NewVariantID string
	Reason       string
	config       map[string]any
}

func NewAction(config map[string]any) *Action {
	return &Action{
		ProductID:    actions.String(config, "product_id"),
		NewVariantID: actions.String(config, "new_variant_id"),
		Reason:       actions.StringOr(config, "reason", "wrong_size"),
		config:       config,
	}
}

func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "auto_exchange_action")

	orderID := actions.OrderID(a.config, actionCtx.Data)
	if orderID == "" {
		return nil, fmt.Errorf("auto_exchange needs an order id: %w", actions.ErrMissingTarget)
	}

	productID := a.ProductID
	if productID == "" {
		productID = actions.FirstString(actionCtx.Data, "product_id", "line_items.0.product_id", "order.line_items.0.product_id")
	}

	if productID == "" {
		return nil, fmt.Errorf("auto_exchange needs a product id for order %s: %w", orderID, actions.ErrMissingTarget)
	}

	newVariantID := a.NewVariantID
	if newVariantID == "" {
		newVariantID = actions.FirstString(actionCtx.Data, "new_variant_id", "requested_variant_id")
	}

	exchangeID := actions.Reference("ex")

	logger.InfoContext(ctx, "Exchange created",
		"exchange_id", exchangeID,
		"order_id", orderID,
		"product_id", productID,
	)

	result := map[string]any{
		"success":     true,
		"exchange_id": exchangeID,
		"order_id":    orderID,
		"product_id":  productID,
		"reason":      a.Reason,
	}

	if newVariantID != "" {
		result["new_variant_id"] = newVariantID
	}

	return result, nil
}
