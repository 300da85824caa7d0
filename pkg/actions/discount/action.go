// Package discount provides the create_discount action.
package discount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
)

const (
	TypePercentage  = "percentage"
	TypeFixedAmount = "fixed_amount"

	defaultValue      = 10
	defaultExpiryDays = 30
)

var (
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidDiscountValue = errors.New("invalid discount value")
)

// Action creates a single-use discount code.
type Action struct {
	Type       string
	Value      float64
	Code       string
	Prefix     string
	ExpiryDays int
	now        func() time.Time
}

func NewAction(config map[string]any) *Action {
	value, ok := actions.Number(config, "value")
	if !ok {
		value = defaultValue
	}

	expiryDays := defaultExpiryDays
	if days, ok := actions.Number(config, "expires_in_days"); ok {
		expiryDays = int(days)
	}

	return &Action{
		Type:       actions.StringOr(config, "type", TypePercentage),
		Value:      value,
		Code:       actions.String(config, "code"),
		Prefix:     actions.StringOr(config, "prefix", "DF"),
		ExpiryDays: expiryDays,
		now:        time.Now,
	}
}

func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "create_discount_action")

	switch a.Type {
	case TypePercentage:
		if a.Value <= 0 || a.Value > 100 {
			return nil, fmt.Errorf("%w: %v%%", ErrInvalidDiscountValue, a.Value)
		}
	case TypeFixedAmount:
		if a.Value <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDiscountValue, a.Value)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiscountType, a.Type)
	}

	code := a.Code
	if code == "" {
		code = strings.ToUpper(a.Prefix + "-" + actions.Reference("x")[2:10])
	}

	expiresAt := a.now().UTC().AddDate(0, 0, a.ExpiryDays)

	logger.InfoContext(ctx, "Discount created",
		"code", code,
		"type", a.Type,
		"value", a.Value,
		"customer", actions.CustomerEmail(actionCtx.Data),
	)

	return map[string]any{
		"success":    true,
		"code":       code,
		"type":       a.Type,
		"value":      a.Value,
		"expires_at": expiresAt.Format(time.RFC3339),
	}, nil
}
