// Package tag provides the add_tag action.
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
)

const (
	TargetOrder    = "order"
	TargetCustomer = "customer"
)

var ErrNoTags = errors.New("add_tag needs at least one tag")

// Action tags the order or customer of the trigger.
type Action struct {
	Tags   []string
	Target string
}

func NewAction(config map[string]any) *Action {
	tags := actions.StringSlice(config, "tags")
	if tag := actions.String(config, "tag"); tag != "" {
		tags = append(tags, tag)
	}

	return &Action{
		Tags:   tags,
		Target: actions.StringOr(config, "target", TargetOrder),
	}
}

func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "add_tag_action")

	if len(a.Tags) == 0 {
		return nil, ErrNoTags
	}

	var targetID string

	switch a.Target {
	case TargetCustomer:
		targetID = actions.FirstString(actionCtx.Data, "customer.id", "customer_id", "customer.email", "email")
	default:
		targetID = actions.FirstString(actionCtx.Data, "order_id", "order.id", "id")
	}

	if targetID == "" {
		return nil, fmt.Errorf("add_tag cannot resolve the %s: %w", a.Target, actions.ErrMissingTarget)
	}

	logger.InfoContext(ctx, "Tags added", "target", a.Target, "target_id", targetID, "tags", a.Tags)

	return map[string]any{
		"success":   true,
		"target":    a.Target,
		"target_id": targetID,
		"tags":      a.Tags,
	}, nil
}
