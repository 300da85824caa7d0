// Package protocol defines the interfaces and contracts for pluggable playbook actions.
package protocol

import (
	"context"
	"log/slog"
)

// ActionContext carries the trigger information an action runs against.
type ActionContext struct {
	PlaybookID string
	UserID     string
	ShopDomain string
	Data       map[string]any
}

// Action is one configured side effect. Results must carry a "success" key.
type Action interface {
	Execute(ctx context.Context, actionCtx ActionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates actions of one kind and describes their configuration.
type ActionFactory interface {
	// Create builds an action from the playbook configuration
	Create(config map[string]any) (Action, error)

	// ID returns the action kind, e.g. "auto_refund"
	ID() string

	// Schema returns the JSON schema for the action configuration
	Schema() map[string]any
}
