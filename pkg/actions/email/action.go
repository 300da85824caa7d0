// Package email provides the send_email action.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/dukex/deskflow/pkg/template"
)

// ErrMissingRecipient is returned when no recipient is configured or found in the trigger data.
var ErrMissingRecipient = errors.New("send_email has no recipient")

// Action sends a templated e-mail. Subject and body see .data, .user_id, .shop_domain and .playbook_id.
type Action struct {
	To       string
	Subject  string
	Body     string
	Template string
	ReplyTo  string
}

func NewAction(config map[string]any) *Action {
	return &Action{
		To:       actions.String(config, "to"),
		Subject:  actions.String(config, "subject"),
		Body:     actions.String(config, "body"),
		Template: actions.String(config, "template"),
		ReplyTo:  actions.String(config, "reply_to"),
	}
}

func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "send_email_action")

	to := a.To
	if to != "" {
		rendered, err := template.RenderStringWithContext(to, actionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render recipient: %w", err)
		}

		to = rendered
	} else {
		to = actions.CustomerEmail(actionCtx.Data)
	}

	if to == "" {
		return nil, ErrMissingRecipient
	}

	subject, err := template.RenderStringWithContext(a.Subject, actionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	body, err := template.RenderStringWithContext(a.Body, actionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	messageID := actions.Reference("msg")

	logger.InfoContext(ctx, "Email queued",
		"message_id", messageID,
		"to", to,
		"subject", subject,
		"template", a.Template,
	)

	result := map[string]any{
		"success":    true,
		"message_id": messageID,
		"to":         to,
		"subject":    subject,
		"body":       body,
	}

	if a.Template != "" {
		result["template"] = a.Template
	}

	if a.ReplyTo != "" {
		result["reply_to"] = a.ReplyTo
	}

	return result, nil
}
