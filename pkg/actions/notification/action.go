// Package notification provides the send_notification action.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/deskflow/pkg/actions"
	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/dukex/deskflow/pkg/template"
)

const defaultTimeoutSeconds = 10

var (
	// ErrWebhookFailed is returned when the webhook keeps answering with an error status.
	ErrWebhookFailed = errors.New("notification webhook failed")
	// ErrMissingMessage is returned when the notification has nothing to say.
	ErrMissingMessage = errors.New("send_notification needs a message")
)

// Action notifies the merchant. Without a webhook URL it is log only.
type Action struct {
	Channel    string
	Message    string
	WebhookURL string
	Headers    map[string]string
	Timeout    time.Duration
	Retry      RetryConfig
	client     *http.Client
}

// RetryConfig defines retry behavior for webhook deliveries.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

func NewAction(config map[string]any) *Action {
	headers := make(map[string]string)

	if headersMap, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersMap {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := actions.Number(config, "timeout"); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	return &Action{
		Channel:    actions.StringOr(config, "channel", "dashboard"),
		Message:    actions.String(config, "message"),
		WebhookURL: actions.String(config, "webhook_url"),
		Headers:    headers,
		Timeout:    timeout,
		Retry:      parseRetryConfig(config["retry"]),
		client:     &http.Client{Timeout: timeout},
	}
}

func parseRetryConfig(retryConfig any) RetryConfig {
	retry := RetryConfig{Attempts: 1}

	retryMap, ok := retryConfig.(map[string]any)
	if !ok {
		return retry
	}

	if attempts, ok := actions.Number(retryMap, "attempts"); ok && attempts >= 1 {
		retry.Attempts = int(attempts)
	}

	if delay, ok := actions.Number(retryMap, "delay"); ok && delay > 0 {
		retry.Delay = time.Duration(delay * float64(time.Second))
	}

	return retry
}

func (a *Action) Execute(ctx context.Context, actionCtx protocol.ActionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "send_notification_action", "channel", a.Channel)

	if a.Message == "" {
		return nil, ErrMissingMessage
	}

	message, err := template.RenderStringWithContext(a.Message, actionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	result := map[string]any{
		"success":         true,
		"notification_id": actions.Reference("ntf"),
		"channel":         a.Channel,
		"message":         message,
	}

	if a.WebhookURL == "" {
		logger.InfoContext(ctx, "Notification recorded", "message", message)

		return result, nil
	}

	statusCode, err := a.deliver(ctx, actionCtx, message, logger)
	if err != nil {
		return nil, err
	}

	result["status_code"] = statusCode

	return result, nil
}

func (a *Action) deliver(ctx context.Context, actionCtx protocol.ActionContext, message string, logger *slog.Logger) (int, error) {
	payload, err := json.Marshal(map[string]any{
		"channel":     a.Channel,
		"message":     message,
		"playbook_id": actionCtx.PlaybookID,
		"user_id":     actionCtx.UserID,
		"shop_domain": actionCtx.ShopDomain,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode notification: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, fmt.Sprintf("Notification retry attempt %d/%d", attempt, a.Retry.Attempts))

			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(a.Retry.Delay):
			}
		}

		statusCode, err := a.post(ctx, payload)
		if err == nil {
			return statusCode, nil
		}

		lastErr = err
	}

	return 0, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
}

func (a *Action) post(ctx context.Context, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrWebhookFailed, resp.StatusCode)
	}

	return resp.StatusCode, nil
}
