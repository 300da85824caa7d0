// Package refund provides the auto_refund action.
package refund

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
)

// Action issues a refund for the order referenced by the trigger.
type Action struct {
	Amount     float64
	HasAmount  bool
	Percentage float64
	Reason     string
	Currency   string
	config     map[string]any
}

// NewAction creates a refund action from configuration.
func NewAction(config map[string]any) *Action {
	amount, hasAmount := actions.Number(config, "amount")
	percentage, hasPercentage := actions.Number(config, "percentage")

	if !hasPercentage {
		percentage = 100
	}

	return &Action{
		Amount:     amount,
		HasAmount:  hasAmount,
		Percentage: percentage,
		Reason:     actions.StringOr(config, "reason", "customer_request"),
		Currency:   actions.String(config, "currency"),
		config:     config,
	}
}

// Execute refunds either the configured amount or a percentage of the order total.
func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "auto_refund_action")

	orderID := actions.OrderID(a.config, actionCtx.Data)
	if orderID == "" {
		return nil, fmt.Errorf("auto_refund needs an order id: %w", actions.ErrMissingTarget)
	}

	amount := a.Amount
	if !a.HasAmount {
		total, ok := actions.FirstNumber(actionCtx.Data, "order_total", "order.total_price", "total_price", "amount")
		if !ok {
			return nil, fmt.Errorf("auto_refund cannot resolve an amount for order %s: %w", orderID, actions.ErrMissingTarget)
		}

		amount = math.Round(total*a.Percentage) / 100
	}

	currency := a.Currency
	if currency == "" {
		currency = actions.FirstString(actionCtx.Data, "currency", "order.currency")
	}

	if currency == "" {
		currency = "USD"
	}

	refundID := actions.Reference("rf")

	logger.InfoContext(ctx, "Refund issued",
		"refund_id", refundID,
		"order_id", orderID,
		"amount", amount,
		"shop_domain", actionCtx.ShopDomain,
	)

	return map[string]any{
		"success":   true,
		"refund_id": refundID,
		"order_id":  orderID,
		"amount":    amount,
		"currency":  currency,
		"reason":    a.Reason,
	}, nil
}
