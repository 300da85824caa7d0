// Package engine matches trigger events against playbooks, decides whether to run them and records the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/dukex/deskflow/pkg/conditions"
	"github.com/dukex/deskflow/pkg/confidence"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/otelhelper"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/dukex/deskflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ReasonConditionsNotMet = "Conditions not met"
	ReasonManualApproval   = "Manual approval required"
	ReasonApproved         = "Approved"
)

// ActionRunner executes the actions of a playbook. Implemented by dispatcher.Dispatcher.
type ActionRunner interface {
	RunActions(ctx context.Context, items []models.ActionItem, actionCtx protocol.ActionContext) []models.ActionOutcome
}

type Orchestrator struct {
	playbooks  persistence.PlaybookRepository
	executions persistence.ExecutionRepository
	runner     ActionRunner
	estimator  confidence.Estimator
	notifier   Notifier
	dedup      Deduplicator
	tracer     trace.Tracer
	logger     *slog.Logger

	approving sync.Map
}

type Option func(*Orchestrator)

func WithEstimator(estimator confidence.Estimator) Option {
	return func(o *Orchestrator) {
		o.estimator = estimator
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = notifier
	}
}

func WithDeduplicator(dedup Deduplicator) Option {
	return func(o *Orchestrator) {
		o.dedup = dedup
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

func New(store persistence.Persistence, runner ActionRunner, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		playbooks:  store.PlaybookRepository(),
		executions: store.ExecutionRepository(),
		runner:     runner,
		estimator:  confidence.NewStatic(),
		tracer:     otelhelper.NoopTracer(),
		logger:     logger.With("module", "orchestrator"),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Execute runs trigger against the user's enabled playbooks. It records exactly one execution row
// per playbook whose trigger matches and fails only on a missing user, a duplicate idempotency key
// or when the playbooks cannot be loaded.
func (o *Orchestrator) Execute(ctx context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error) {
	if strings.TrimSpace(trigger.UserID) == "" {
		return nil, ErrMissingUserID
	}

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.execute",
		attribute.String(otelhelper.UserIDKey, trigger.UserID),
		attribute.String(otelhelper.TriggerTypeKey, string(trigger.Type)),
		attribute.String(otelhelper.TriggerEventKey, subject(trigger)),
	)
	defer span.End()

	logger := o.logger.With("user_id", trigger.UserID, "trigger_type", trigger.Type)

	claimKey, err := o.claim(ctx, trigger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	playbooks, err := o.playbooks.EnabledByUser(ctx, trigger.UserID)
	if err != nil {
		o.release(ctx, claimKey)

		err = fmt.Errorf("%w: %w", ErrLoadPlaybooks, err)
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to load playbooks", "error", err)

		return nil, err
	}

	matching := make([]*models.Playbook, 0, len(playbooks))

	for _, playbook := range playbooks {
		if playbook.Enabled && trigger.Matches(playbook.Trigger) {
			matching = append(matching, playbook)
		}
	}

	span.SetAttributes(attribute.Int(otelhelper.MatchedCountKey, len(matching)))
	logger.InfoContext(ctx, "Evaluating trigger", "candidates", len(playbooks), "matched", len(matching))

	response := &models.ExecutionResponse{
		Matched: len(matching),
		Results: make([]models.PlaybookResult, 0, len(matching)),
	}

	snapshot := trigger.Snapshot()

	for _, playbook := range matching {
		response.Results = append(response.Results, o.runPlaybook(ctx, playbook, trigger, snapshot))
	}

	return response, nil
}

// subject is the type-specific part of a trigger: its event, intent or schedule.
func subject(trigger models.TriggerEvent) string {
	switch trigger.Type {
	case models.TriggerTypeShopifyEvent:
		return trigger.Event
	case models.TriggerTypeEmailIntent:
		return trigger.Intent
	default:
		return trigger.Schedule
	}
}

func (o *Orchestrator) claim(ctx context.Context, trigger models.TriggerEvent) (string, error) {
	if o.dedup == nil || trigger.IdempotencyKey == "" {
		return "", nil
	}

	key := trigger.UserID + ":" + trigger.IdempotencyKey

	claimed, err := o.dedup.Claim(ctx, key)
	if err != nil {
		// an unavailable guard must not stop support automation
		o.logger.WarnContext(ctx, "Idempotency guard unavailable", "key", key, "error", err)

		return "", nil
	}

	if !claimed {
		return "", fmt.Errorf("%w: %s", ErrDuplicateTrigger, trigger.IdempotencyKey)
	}

	return key, nil
}

func (o *Orchestrator) release(ctx context.Context, key string) {
	if key == "" {
		return
	}

	if err := o.dedup.Release(ctx, key); err != nil {
		o.logger.WarnContext(ctx, "Failed to release idempotency key", "key", key, "error", err)
	}
}

func (o *Orchestrator) runPlaybook(
	ctx context.Context,
	playbook *models.Playbook,
	trigger models.TriggerEvent,
	snapshot map[string]any,
) models.PlaybookResult {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.playbook",
		attribute.String(otelhelper.PlaybookIDKey, playbook.ID),
		attribute.String(otelhelper.PlaybookNameKey, playbook.Name),
	)
	defer span.End()

	logger := o.logger.With("playbook_id", playbook.ID, "user_id", trigger.UserID)

	execution, err := o.evaluate(ctx, playbook, trigger, snapshot)
	if err == nil {
		err = o.record(ctx, execution)
	}

	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Playbook execution failed", "error", err)

		execution = &models.PlaybookExecution{
			PlaybookID:  playbook.ID,
			UserID:      trigger.UserID,
			Status:      models.ExecutionStatusFailed,
			TriggerData: snapshot,
			Error:       err.Error(),
		}

		if recordErr := o.record(ctx, execution); recordErr != nil {
			logger.ErrorContext(ctx, "Failed to record failed execution", "error", recordErr)

			execution.ID = ""
		}
	}

	otelhelper.SetExecution(span, execution.ID, string(execution.Status))
	logger.InfoContext(ctx, "Playbook evaluated", "status", execution.Status, "execution_id", execution.ID)

	return models.NewPlaybookResult(execution)
}

// evaluate decides the outcome of one playbook and runs its actions when it may auto-execute.
func (o *Orchestrator) evaluate(
	ctx context.Context,
	playbook *models.Playbook,
	trigger models.TriggerEvent,
	snapshot map[string]any,
) (execution *models.PlaybookExecution, err error) {
	defer func() {
		if r := recover(); r != nil {
			execution = nil
			err = fmt.Errorf("%w: %v", ErrPlaybookPanic, r)
		}
	}()

	execution = &models.PlaybookExecution{
		PlaybookID:  playbook.ID,
		UserID:      trigger.UserID,
		TriggerData: snapshot,
	}

	if !conditions.Evaluate(playbook.Conditions, trigger.Data) {
		execution.Status = models.ExecutionStatusSkipped
		execution.Reason = ReasonConditionsNotMet

		return execution, nil
	}

	score, err := o.estimator.Estimate(ctx, playbook, trigger.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate confidence: %w", err)
	}

	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, fmt.Errorf("%w: %v", ErrConfidenceOutOfRange, score)
	}

	execution.Confidence = &score

	switch {
	case playbook.RequiresApproval:
		execution.Status = models.ExecutionStatusPending
		execution.Reason = ReasonManualApproval
	case score < playbook.ConfidenceThreshold:
		execution.Status = models.ExecutionStatusPending
		execution.Reason = BelowThresholdReason(score, playbook.ConfidenceThreshold)
	default:
		execution.Status = models.ExecutionStatusExecuted
		execution.Result = o.runner.RunActions(ctx, playbook.Actions, protocol.ActionContext{
			PlaybookID: playbook.ID,
			UserID:     trigger.UserID,
			ShopDomain: trigger.ShopDomain,
			Data:       trigger.Data,
		})
	}

	return execution, nil
}

// BelowThresholdReason formats the pending reason, e.g. "Confidence 85% below threshold 99%".
func BelowThresholdReason(score, threshold float64) string {
	return fmt.Sprintf("Confidence %d%% below threshold %d%%", percent(score), percent(threshold))
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func (o *Orchestrator) record(ctx context.Context, execution *models.PlaybookExecution) error {
	if err := o.executions.Record(ctx, execution); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, execution); err != nil {
			o.logger.WarnContext(ctx, "Failed to publish execution", "execution_id", execution.ID, "error", err)
		}
	}

	return nil
}

// Approve runs the actions of a pending execution on behalf of userID and appends an executed row
// that references it. The pending row itself is left untouched.
func (o *Orchestrator) Approve(ctx context.Context, executionID, userID string) (*models.PlaybookResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.approve",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.UserIDKey, userID),
	)
	defer span.End()

	result, err := o.approve(ctx, executionID, userID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

func (o *Orchestrator) approve(ctx context.Context, executionID, userID string) (*models.PlaybookResult, error) {
	if _, busy := o.approving.LoadOrStore(executionID, struct{}{}); busy {
		return nil, ErrAlreadyApproved
	}
	defer o.approving.Delete(executionID)

	pending, err := o.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if pending.UserID != userID {
		return nil, ErrForbidden
	}

	if pending.Status != models.ExecutionStatusPending {
		return nil, ErrNotPending
	}

	_, err = o.executions.FindApproval(ctx, executionID)

	switch {
	case err == nil:
		return nil, ErrAlreadyApproved
	case !persistence.IsExecutionNotFound(err):
		return nil, err
	}

	playbook, err := o.playbooks.GetByID(ctx, pending.PlaybookID)
	if err != nil {
		return nil, err
	}

	// other replicas may be approving the same row
	claimKey := ""

	if o.dedup != nil {
		claimed, claimErr := o.dedup.Claim(ctx, "approve:"+executionID)
		if claimErr == nil && !claimed {
			return nil, ErrAlreadyApproved
		}

		if claimErr == nil {
			claimKey = "approve:" + executionID
		}
	}

	data, _ := pending.TriggerData["data"].(map[string]any)
	shopDomain, _ := pending.TriggerData["shop_domain"].(string)

	o.logger.InfoContext(ctx, "Running approved playbook", "playbook_id", playbook.ID, "execution_id", executionID)

	approved := &models.PlaybookExecution{
		PlaybookID:          playbook.ID,
		UserID:              pending.UserID,
		Status:              models.ExecutionStatusExecuted,
		Confidence:          pending.Confidence,
		Reason:              ReasonApproved,
		TriggerData:         pending.TriggerData,
		ApprovedExecutionID: pending.ID,
		Result: o.runner.RunActions(ctx, playbook.Actions, protocol.ActionContext{
			PlaybookID: playbook.ID,
			UserID:     pending.UserID,
			ShopDomain: shopDomain,
			Data:       data,
		}),
	}

	if err := o.record(ctx, approved); err != nil {
		if errors.Is(err, persistence.ErrExecutionConflict) {
			return nil, ErrAlreadyApproved
		}

		o.release(ctx, claimKey)

		return nil, err
	}

	result := models.NewPlaybookResult(approved)

	return &result, nil
}
