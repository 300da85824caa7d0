package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/dukex/deskflow/pkg/confidence"
	"github.com/dukex/deskflow/pkg/dedup"
	"github.com/dukex/deskflow/pkg/dispatcher"
	"github.com/dukex/deskflow/pkg/engine"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/mocks"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/dukex/deskflow/pkg/persistence/file"
	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/dukex/deskflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const userID = "user-1"

type stubFactory struct {
	id    string
	err   error
	calls atomic.Int32
}

func (f *stubFactory) ID() string { return f.id }

func (f *stubFactory) Schema() map[string]any { return nil }

func (f *stubFactory) Create(_ map[string]any) (protocol.Action, error) {
	return &stubAction{factory: f}, nil
}

type stubAction struct {
	factory *stubFactory
}

func (a *stubAction) Execute(_ context.Context, actionCtx protocol.ActionContext, _ *slog.Logger) (map[string]any, error) {
	a.factory.calls.Add(1)

	if a.factory.err != nil {
		return nil, a.factory.err
	}

	return map[string]any{"success": true, "user_id": actionCtx.UserID, "order_total": actionCtx.Data["order_total"]}, nil
}

type fixture struct {
	store   *file.Persistence
	tag     *stubFactory
	failing *stubFactory
	runner  *dispatcher.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	f := &fixture{
		store:   file.NewPersistence(t.TempDir()),
		tag:     &stubFactory{id: "add_tag"},
		failing: &stubFactory{id: "auto_refund", err: errors.New("payment gateway down")},
	}

	reg.RegisterAction(f.tag)
	reg.RegisterAction(f.failing)

	f.runner = dispatcher.New(reg, slog.Default())

	return f
}

func (f *fixture) orchestrator(opts ...engine.Option) *engine.Orchestrator {
	return engine.New(f.store, f.runner, slog.Default(), opts...)
}

func (f *fixture) save(t *testing.T, playbook *models.Playbook) *models.Playbook {
	t.Helper()

	require.NoError(t, f.store.PlaybookRepository().Save(context.Background(), playbook))

	return playbook
}

func (f *fixture) executions(t *testing.T, playbookID string) []*models.PlaybookExecution {
	t.Helper()

	rows, err := f.store.ExecutionRepository().ListByPlaybook(context.Background(), playbookID, 0)
	require.NoError(t, err)

	return rows
}

func orderPlaybook(name string, threshold float64, conds ...models.Condition) *models.Playbook {
	return &models.Playbook{
		UserID:              userID,
		Name:                name,
		Trigger:             models.Trigger{Type: models.TriggerTypeShopifyEvent, Config: models.TriggerConfig{Event: "order_created"}},
		Conditions:          conds,
		Actions:             []models.ActionItem{{Type: "add_tag", Config: map[string]any{"tags": []any{"vip"}}}},
		ConfidenceThreshold: threshold,
		Enabled:             true,
	}
}

func orderCreated(total float64) models.TriggerEvent {
	return models.TriggerEvent{
		Type:   models.TriggerTypeShopifyEvent,
		Event:  "order_created",
		Data:   map[string]any{"order_total": total},
		UserID: userID,
	}
}

var over50 = models.Condition{Field: "order_total", Operator: models.OperatorGreaterThan, Value: "50"}

func TestOrchestrator_ScenarioA_Executed(t *testing.T) {
	f := newFixture(t)
	playbook := f.save(t, orderPlaybook("High value order", 0.8, over50))

	response, err := f.orchestrator().Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	assert.Equal(t, 1, response.Matched)
	require.Len(t, response.Results, 1)

	result := response.Results[0]
	assert.Equal(t, playbook.ID, result.PlaybookID)
	assert.Equal(t, models.ResultStatusExecuted, result.Status)
	require.NotNil(t, result.Confidence)
	assert.InDelta(t, 0.85, *result.Confidence, 1e-9)
	require.Len(t, result.Result, 1)
	assert.Equal(t, "add_tag", result.Result[0].Action)
	assert.Equal(t, true, result.Result[0].Result["success"])
	assert.Equal(t, userID, result.Result[0].Result["user_id"])
	assert.Equal(t, int32(1), f.tag.calls.Load())

	stored, err := f.store.PlaybookRepository().GetByID(context.Background(), playbook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ExecutionCount)
	assert.NotNil(t, stored.LastExecutedAt)

	rows := f.executions(t, playbook.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExecutionStatusExecuted, rows[0].Status)
	assert.Equal(t, "order_created", rows[0].TriggerData["event"])
}

func TestOrchestrator_ScenarioB_PendingBelowThreshold(t *testing.T) {
	f := newFixture(t)
	playbook := f.save(t, orderPlaybook("High value order", 0.99, over50))

	response, err := f.orchestrator().Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	require.Len(t, response.Results, 1)
	result := response.Results[0]
	assert.Equal(t, models.ResultStatusPendingApproval, result.Status)
	assert.Contains(t, result.Reason, "85% below threshold 99%")
	assert.Empty(t, result.Result)
	assert.Equal(t, int32(0), f.tag.calls.Load())

	stored, err := f.store.PlaybookRepository().GetByID(context.Background(), playbook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.ExecutionCount)
	assert.Nil(t, stored.LastExecutedAt)

	rows := f.executions(t, playbook.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExecutionStatusPending, rows[0].Status)
	require.NotNil(t, rows[0].Confidence)
}

func TestOrchestrator_ScenarioC_Skipped(t *testing.T) {
	f := newFixture(t)
	over200 := models.Condition{Field: "order_total", Operator: models.OperatorGreaterThan, Value: "200"}
	playbook := f.save(t, orderPlaybook("Huge order", 0.8, over200))

	response, err := f.orchestrator().Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	assert.Equal(t, 1, response.Matched)
	require.Len(t, response.Results, 1)
	assert.Equal(t, models.ResultStatusSkipped, response.Results[0].Status)
	assert.Equal(t, engine.ReasonConditionsNotMet, response.Results[0].Reason)
	assert.Nil(t, response.Results[0].Confidence)

	rows := f.executions(t, playbook.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExecutionStatusSkipped, rows[0].Status)
}

func TestOrchestrator_ScenarioD_TypeMismatch(t *testing.T) {
	f := newFixture(t)
	playbook := f.save(t, orderPlaybook("High value order", 0.8, over50))

	response, err := f.orchestrator().Execute(context.Background(), models.TriggerEvent{
		Type:   models.TriggerTypeEmailIntent,
		Intent: "refund_request",
		Data:   map[string]any{},
		UserID: userID,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, response.Matched)
	assert.Empty(t, response.Results)
	assert.Empty(t, f.executions(t, playbook.ID))
}

func TestOrchestrator_MissingUserID(t *testing.T) {
	f := newFixture(t)

	trigger := orderCreated(120)
	trigger.UserID = "  "

	_, err := f.orchestrator().Execute(context.Background(), trigger)
	assert.ErrorIs(t, err, engine.ErrMissingUserID)
}

func TestOrchestrator_RequiresApprovalNeverAutoExecutes(t *testing.T) {
	f := newFixture(t)
	playbook := orderPlaybook("Refund", 0)
	playbook.RequiresApproval = true
	f.save(t, playbook)

	response, err := f.orchestrator(engine.WithEstimator(confidence.Func(
		func(context.Context, *models.Playbook, map[string]any) (float64, error) { return 1, nil },
	))).Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	require.Len(t, response.Results, 1)
	assert.Equal(t, models.ResultStatusPendingApproval, response.Results[0].Status)
	assert.Equal(t, engine.ReasonManualApproval, response.Results[0].Reason)
	assert.Equal(t, int32(0), f.tag.calls.Load())
}

func TestOrchestrator_OneRowPerMatchingPlaybook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	executed := f.save(t, orderPlaybook("executed", 0.8))
	pending := f.save(t, orderPlaybook("pending", 0.9))
	skipped := f.save(t, orderPlaybook("skipped", 0.8, models.Condition{Field: "customer.ltv", Operator: models.OperatorGreaterThan, Value: "1000"}))

	otherEvent := orderPlaybook("other event", 0.8)
	otherEvent.Trigger.Config.Event = "order_cancelled"
	otherEvent = f.save(t, otherEvent)

	disabled := orderPlaybook("disabled", 0.8)
	disabled.Enabled = false
	disabled = f.save(t, disabled)

	otherUser := orderPlaybook("other user", 0.8)
	otherUser.UserID = "user-2"
	otherUser = f.save(t, otherUser)

	response, err := f.orchestrator().Execute(ctx, orderCreated(120))
	require.NoError(t, err)

	assert.Equal(t, 3, response.Matched)
	require.Len(t, response.Results, 3)

	statuses := map[string]models.ResultStatus{}
	for _, result := range response.Results {
		statuses[result.PlaybookID] = result.Status
	}

	assert.Equal(t, models.ResultStatusExecuted, statuses[executed.ID])
	assert.Equal(t, models.ResultStatusPendingApproval, statuses[pending.ID])
	assert.Equal(t, models.ResultStatusSkipped, statuses[skipped.ID])

	for _, playbook := range []*models.Playbook{executed, pending, skipped} {
		assert.Len(t, f.executions(t, playbook.ID), 1, playbook.Name)
	}

	for _, playbook := range []*models.Playbook{otherEvent, disabled, otherUser} {
		assert.Empty(t, f.executions(t, playbook.ID), playbook.Name)
	}
}

func TestOrchestrator_ActionFailureDoesNotStopLaterActions(t *testing.T) {
	f := newFixture(t)
	playbook := orderPlaybook("Refund and tag", 0.8)
	playbook.Actions = []models.ActionItem{
		{Type: "auto_refund", Config: map[string]any{}},
		{Type: "add_tag", Config: map[string]any{"tags": []any{"refunded"}}},
		{Type: "teleport_parcel", Config: map[string]any{}},
	}
	f.save(t, playbook)

	response, err := f.orchestrator().Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	result := response.Results[0]
	assert.Equal(t, models.ResultStatusExecuted, result.Status)
	require.Len(t, result.Result, 3)

	assert.Equal(t, "auto_refund", result.Result[0].Action)
	assert.Equal(t, "payment gateway down", result.Result[0].Error)
	assert.Equal(t, "add_tag", result.Result[1].Action)
	assert.Equal(t, true, result.Result[1].Result["success"])
	assert.Equal(t, false, result.Result[2].Result["success"])
	assert.Equal(t, dispatcher.UnknownActionType, result.Result[2].Result["error"])
	assert.Equal(t, int32(1), f.tag.calls.Load())
}

func TestOrchestrator_PlaybookFailureIsIsolated(t *testing.T) {
	f := newFixture(t)

	broken := f.save(t, orderPlaybook("broken", 0.8))
	panicking := f.save(t, orderPlaybook("panicking", 0.8))
	outOfRange := f.save(t, orderPlaybook("out of range", 0.8))
	healthy := f.save(t, orderPlaybook("healthy", 0.8))

	estimator := confidence.Func(func(_ context.Context, playbook *models.Playbook, _ map[string]any) (float64, error) {
		switch playbook.ID {
		case broken.ID:
			return 0, errors.New("model unavailable")
		case panicking.ID:
			panic("boom")
		case outOfRange.ID:
			return 1.5, nil
		default:
			return 0.9, nil
		}
	})

	response, err := f.orchestrator(engine.WithEstimator(estimator)).Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	assert.Equal(t, 4, response.Matched)

	results := map[string]models.PlaybookResult{}
	for _, result := range response.Results {
		results[result.PlaybookID] = result
	}

	assert.Equal(t, models.ResultStatusFailed, results[broken.ID].Status)
	assert.Contains(t, results[broken.ID].Error, "model unavailable")
	assert.Equal(t, models.ResultStatusFailed, results[panicking.ID].Status)
	assert.Contains(t, results[panicking.ID].Error, "boom")
	assert.Equal(t, models.ResultStatusFailed, results[outOfRange.ID].Status)
	assert.Contains(t, results[outOfRange.ID].Error, engine.ErrConfidenceOutOfRange.Error())
	assert.Equal(t, models.ResultStatusExecuted, results[healthy.ID].Status)

	rows := f.executions(t, broken.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExecutionStatusFailed, rows[0].Status)
	assert.NotEmpty(t, rows[0].Error)
}

func TestOrchestrator_LoadPlaybooksFailure(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.Playbooks.On("EnabledByUser", mock.Anything, userID).Return(nil, errors.New("connection refused"))

	guard := dedup.NewMemoryGuard(0)
	orchestrator := engine.New(store, newFixture(t).runner, slog.Default(), engine.WithDeduplicator(guard))

	trigger := orderCreated(120)
	trigger.IdempotencyKey = "order-1001"

	_, err := orchestrator.Execute(context.Background(), trigger)
	require.ErrorIs(t, err, engine.ErrLoadPlaybooks)
	assert.Contains(t, err.Error(), "connection refused")

	// the key is released so that a retry is not rejected as a duplicate
	claimed, err := guard.Claim(context.Background(), userID+":order-1001")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestOrchestrator_RecordFailureFallsBackToFailedRow(t *testing.T) {
	playbook := orderPlaybook("High value order", 0.8)
	playbook.ID = "pb-1"

	store := mocks.NewMockPersistence()
	store.Playbooks.On("EnabledByUser", mock.Anything, userID).Return([]*models.Playbook{playbook}, nil)
	store.Executions.On("Record", mock.Anything, mock.MatchedBy(func(e *models.PlaybookExecution) bool {
		return e.Status == models.ExecutionStatusExecuted
	})).Return(errors.New("disk full"))
	store.Executions.On("Record", mock.Anything, mock.MatchedBy(func(e *models.PlaybookExecution) bool {
		return e.Status == models.ExecutionStatusFailed
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.PlaybookExecution).ID = "exec-failed"
	}).Return(nil)

	response, err := engine.New(store, newFixture(t).runner, slog.Default()).Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	require.Len(t, response.Results, 1)
	assert.Equal(t, models.ResultStatusFailed, response.Results[0].Status)
	assert.Equal(t, "exec-failed", response.Results[0].ExecutionID)
	assert.Contains(t, response.Results[0].Error, "disk full")
	store.Executions.AssertNumberOfCalls(t, "Record", 2)
}

func TestOrchestrator_DuplicateTrigger(t *testing.T) {
	f := newFixture(t)
	f.save(t, orderPlaybook("High value order", 0.8))

	orchestrator := f.orchestrator(engine.WithDeduplicator(dedup.NewMemoryGuard(0)))

	trigger := orderCreated(120)
	trigger.IdempotencyKey = "order-1001"

	_, err := orchestrator.Execute(context.Background(), trigger)
	require.NoError(t, err)

	_, err = orchestrator.Execute(context.Background(), trigger)
	require.ErrorIs(t, err, engine.ErrDuplicateTrigger)

	trigger.IdempotencyKey = ""
	_, err = orchestrator.Execute(context.Background(), trigger)
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.tag.calls.Load())
}

func TestOrchestrator_NotifiesEveryRow(t *testing.T) {
	f := newFixture(t)
	f.save(t, orderPlaybook("executed", 0.8))
	f.save(t, orderPlaybook("pending", 0.9))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, userID, mock.AnythingOfType("events.PlaybookExecutionRecorded")).Return(nil)

	_, err := f.orchestrator(engine.WithNotifier(engine.NewEventNotifier(bus))).Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)

	bus.AssertNumberOfCalls(t, "Publish", 2)

	event := bus.Calls[0].Arguments.Get(2).(events.PlaybookExecutionRecorded)
	assert.Equal(t, events.PlaybookExecutionRecordedEvent, event.GetType())
	assert.NotEmpty(t, event.ExecutionID)
}

func TestOrchestrator_NotifierErrorIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.save(t, orderPlaybook("executed", 0.8))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	response, err := f.orchestrator(engine.WithNotifier(engine.NewEventNotifier(bus))).Execute(context.Background(), orderCreated(120))
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusExecuted, response.Results[0].Status)
}

func pendingExecution(t *testing.T, f *fixture) (*models.Playbook, string) {
	t.Helper()

	playbook := orderPlaybook("Refund", 0.8)
	playbook.RequiresApproval = true
	f.save(t, playbook)

	trigger := orderCreated(120)
	trigger.ShopDomain = "demo.myshopify.com"

	response, err := f.orchestrator().Execute(context.Background(), trigger)
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusPendingApproval, response.Results[0].Status)

	return playbook, response.Results[0].ExecutionID
}

func TestOrchestrator_Approve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playbook, pendingID := pendingExecution(t, f)

	result, err := f.orchestrator().Approve(ctx, pendingID, userID)
	require.NoError(t, err)

	assert.Equal(t, models.ResultStatusExecuted, result.Status)
	require.Len(t, result.Result, 1)
	assert.Equal(t, 120.0, result.Result[0].Result["order_total"])
	assert.Equal(t, int32(1), f.tag.calls.Load())

	pending, err := f.store.ExecutionRepository().GetByID(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, pending.Status)

	approval, err := f.store.ExecutionRepository().FindApproval(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, result.ExecutionID, approval.ID)
	assert.Equal(t, engine.ReasonApproved, approval.Reason)

	stored, err := f.store.PlaybookRepository().GetByID(ctx, playbook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ExecutionCount)

	_, err = f.orchestrator().Approve(ctx, pendingID, userID)
	require.ErrorIs(t, err, engine.ErrAlreadyApproved)
	assert.Equal(t, int32(1), f.tag.calls.Load())
}

func TestOrchestrator_ApproveErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pendingID := pendingExecution(t, f)

	skipped := f.save(t, orderPlaybook("skipped", 0.8, models.Condition{Field: "order_total", Operator: models.OperatorLessThan, Value: "10"}))
	response, err := f.orchestrator().Execute(ctx, orderCreated(120))
	require.NoError(t, err)

	var skippedID string

	for _, result := range response.Results {
		if result.PlaybookID == skipped.ID {
			skippedID = result.ExecutionID
		}
	}

	require.NotEmpty(t, skippedID)

	_, err = f.orchestrator().Approve(ctx, pendingID, "user-2")
	assert.ErrorIs(t, err, engine.ErrForbidden)

	_, err = f.orchestrator().Approve(ctx, pendingID, "")
	assert.ErrorIs(t, err, engine.ErrMissingUserID)

	_, err = f.orchestrator().Approve(ctx, skippedID, userID)
	assert.ErrorIs(t, err, engine.ErrNotPending)

	_, err = f.orchestrator().Approve(ctx, "does-not-exist", userID)
	assert.ErrorIs(t, err, engine.ErrExecutionNotFound)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestBelowThresholdReason(t *testing.T) {
	assert.Equal(t, "Confidence 85% below threshold 99%", engine.BelowThresholdReason(0.85, 0.99))
	assert.Equal(t, "Confidence 95% below threshold 100%", engine.BelowThresholdReason(0.95, 1))
}
