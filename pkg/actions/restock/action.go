// Package restock provides the restock_product action.
package restock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
)

const defaultQuantity = 10

var ErrInvalidQuantity = errors.New("restock quantity must be positive")

// Action raises a purchase order for a product running low.
type Action struct {
	ProductID string
	Quantity  int
	Supplier  string
}

func NewAction(config map[string]any) *Action {
	quantity := defaultQuantity
	if q, ok := actions.Number(config, "quantity"); ok {
		quantity = int(q)
	}

	return &Action{
		ProductID: actions.String(config, "product_id"),
		Quantity:  quantity,
		Supplier:  actions.String(config, "supplier"),
	}
}

func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "restock_product_action")

	if a.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, a.Quantity)
	}

	productID := a.ProductID
	if productID == "" {
		productID = actions.FirstString(actionCtx.Data, "product_id", "product.id", "inventory_item_id")
	}

	if productID == "" {
		return nil, fmt.Errorf("restock_product needs a product id: %w", actions.ErrMissingTarget)
	}

	purchaseOrderID := actions.Reference("po")

	logger.InfoContext(ctx, "Restock requested",
		"purchase_order_id", purchaseOrderID,
		"product_id", productID,
		"quantity", a.Quantity,
	)

	result := map[string]any{
		"success":           true,
		"purchase_order_id": purchaseOrderID,
		"product_id":        productID,
		"quantity":          a.Quantity,
	}

	if available, ok := actions.FirstNumber(actionCtx.Data, "inventory_quantity", "available", "product.inventory_quantity"); ok {
		result["previous_quantity"] = available
	}

	if a.Supplier != "" {
		result["supplier"] = a.Supplier
	}

	return result, nil
}
