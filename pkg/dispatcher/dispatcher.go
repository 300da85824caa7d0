// Package dispatcher runs the ordered actions of a playbook.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/otelhelper"
	"github.com/dukex/deskflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultActionTimeout bounds a single action when no timeout is configured.
	DefaultActionTimeout = 30 * time.Second

	// UnknownActionType is reported for action kinds nobody registered.
	UnknownActionType = "Unknown action type"
)

// ErrActionTimeout is recorded when an action does not finish within its timeout.
var ErrActionTimeout = errors.New("action timed out")

// ActionCreator builds actions by kind. Implemented by registry.Registry.
type ActionCreator interface {
	HasAction(actionType string) bool
	CreateAction(actionType string, config map[string]any) (protocol.Action, error)
}

type Dispatcher struct {
	actions       ActionCreator
	logger        *slog.Logger
	tracer        trace.Tracer
	actionTimeout time.Duration
}

type Option func(*Dispatcher)

// WithActionTimeout overrides DefaultActionTimeout. Non-positive values are ignored.
func WithActionTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.actionTimeout = timeout
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

func New(actions ActionCreator, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		actions:       actions,
		logger:        logger.With("module", "dispatcher"),
		tracer:        otelhelper.NoopTracer(),
		actionTimeout: DefaultActionTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// RunActions executes items sequentially in declaration order. A failing action is recorded
// as an error entry and the remaining actions still run. The returned slice has one entry per item.
func (d *Dispatcher) RunActions(ctx context.Context, items []models.ActionItem, actionCtx protocol.ActionContext) []models.ActionOutcome {
	outcomes := make([]models.ActionOutcome, 0, len(items))

	for i, item := range items {
		outcomes = append(outcomes, d.runAction(ctx, i, item, actionCtx))
	}

	return outcomes
}

func (d *Dispatcher) runAction(ctx context.Context, index int, item models.ActionItem, actionCtx protocol.ActionContext) models.ActionOutcome {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "dispatcher.action",
		attribute.String(otelhelper.ActionTypeKey, item.Type),
		attribute.Int(otelhelper.ActionIndexKey, index),
		attribute.String(otelhelper.PlaybookIDKey, actionCtx.PlaybookID),
	)
	defer span.End()

	logger := d.logger.With("action_type", item.Type, "action_index", index, "playbook_id", actionCtx.PlaybookID)

	if !d.actions.HasAction(item.Type) {
		logger.WarnContext(ctx, "Unknown action type")

		return models.ActionOutcome{
			Action: item.Type,
			Result: map[string]any{"success": false, "error": UnknownActionType},
		}
	}

	result, err := d.execute(ctx, item, actionCtx, logger)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Action failed", "error", err)

		return models.ActionOutcome{Action: item.Type, Error: err.Error()}
	}

	logger.InfoContext(ctx, "Action completed")

	return models.ActionOutcome{Action: item.Type, Result: result}
}

type actionResult struct {
	result map[string]any
	err    error
}

func (d *Dispatcher) execute(
	ctx context.Context,
	item models.ActionItem,
	actionCtx protocol.ActionContext,
	logger *slog.Logger,
) (map[string]any, error) {
	action, err := d.actions.CreateAction(item.Type, item.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.actionTimeout)
	defer cancel()

	done := make(chan actionResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- actionResult{err: fmt.Errorf("action panicked: %v", r)}
			}
		}()

		result, err := action.Execute(ctx, actionCtx, logger)
		done <- actionResult{result: result, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}

		return normalize(res.result), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrActionTimeout, d.actionTimeout)
		}

		return nil, ctx.Err()
	}
}

// normalize makes sure every successful result carries the uniform success flag.
func normalize(result map[string]any) map[string]any {
	if result == nil {
		return map[string]any{"success": true}
	}

	if _, ok := result["success"]; !ok {
		result["success"] = true
	}

	return result
}
