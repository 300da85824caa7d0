// Package web provides HTTP handlers and REST API endpoints for playbooks and triggers.
package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/registry"
	"github.com/dukex/deskflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// IdempotencyKeyHeader may carry the idempotency key instead of the request body.
const IdempotencyKeyHeader = "Idempotency-Key"

// TriggerExecutor runs triggers and approvals. Implemented by engine.Orchestrator.
type TriggerExecutor interface {
	Execute(ctx context.Context, trigger models.TriggerEvent) (*models.ExecutionResponse, error)
	Approve(ctx context.Context, executionID, userID string) (*models.PlaybookResult, error)
}

type APIHandlers struct {
	playbookService *services.Playbooks
	executor        TriggerExecutor
	publisher       eventbus.EventPublisher
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	playbookService *services.Playbooks,
	executor TriggerExecutor,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		playbookService: playbookService,
		executor:        executor,
		publisher:       publisher,
		validator:       validator,
		registry:        registry,
	}
}

// parseTrigger returns a nil request when the body is invalid; the problem response has then been written.
func (h *APIHandlers) parseTrigger(c fiber.Ctx) (*TriggerRequest, error) {
	var req TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, badRequest(c, "Invalid JSON format")
	}

	if strings.TrimSpace(req.UserID) == "" {
		return nil, badRequest(c, "userId is required")
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, badRequest(c, err.Error())
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Get(IdempotencyKeyHeader)
	}

	return &req, nil
}

// ExecuteTrigger runs the trigger synchronously and returns the per-playbook outcome.
func (h *APIHandlers) ExecuteTrigger(c fiber.Ctx) error {
	req, err := h.parseTrigger(c)
	if req == nil {
		return err
	}

	response, err := h.executor.Execute(c.Context(), req.TriggerEvent())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(response)
}

// EnqueueTrigger publishes the trigger for a worker and returns immediately.
func (h *APIHandlers) EnqueueTrigger(c fiber.Ctx) error {
	req, err := h.parseTrigger(c)
	if req == nil {
		return err
	}

	if h.publisher == nil {
		return problem(c, fiber.StatusServiceUnavailable, "event_bus_unavailable", "asynchronous triggers are disabled")
	}

	event := events.NewTriggerReceived(req.TriggerEvent())

	if err := h.publisher.Publish(c.Context(), req.UserID, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(AsyncTriggerResponse{Status: "accepted", EventID: event.ID})
}

func (h *APIHandlers) ApproveExecution(c fiber.Ctx) error {
	var req ApproveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "userId is required")
	}

	result, err := h.executor.Approve(c.Context(), c.Params("id"), req.UserID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetPlaybooks(c fiber.Ctx) error {
	playbooks, err := h.playbookService.List(c.Context(), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(playbooks)
}

func (h *APIHandlers) CreatePlaybook(c fiber.Ctx) error {
	var req CreatePlaybookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.playbookService.Create(c.Context(), c.Params("userId"), req.Playbook())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) SeedDefaultPlaybooks(c fiber.Ctx) error {
	created, err := h.playbookService.SeedDefaults(c.Context(), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetPlaybook(c fiber.Ctx) error {
	playbook, err := h.playbookService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(playbook)
}

func (h *APIHandlers) UpdatePlaybook(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdatePlaybookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.playbookService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	updated, err := h.playbookService.Update(c.Context(), id, req.Apply(*existing))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeletePlaybook(c fiber.Ctx) error {
	if err := h.playbookService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	limit := services.DefaultExecutionsLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = min(parsed, services.MaxExecutionsLimit)
	}

	executions, err := h.playbookService.Executions(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionsResponse{Executions: executions, Limit: limit})
}

func (h *APIHandlers) GetActionTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.ActionTypes()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.playbookService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Deskflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Deskflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// RegisterRoutes mounts every endpoint on router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)
	router.Get("/actions", h.GetActionTypes)

	router.Post("/triggers", h.ExecuteTrigger)
	router.Post("/triggers/async", h.EnqueueTrigger)

	u := router.Group("/users/:userId/playbooks")
	u.Get("/", h.GetPlaybooks)
	u.Post("/", h.CreatePlaybook)
	u.Post("/defaults", h.SeedDefaultPlaybooks)

	p := router.Group("/playbooks")
	p.Get("/:id", h.GetPlaybook)
	p.Patch("/:id", h.UpdatePlaybook)
	p.Delete("/:id", h.DeletePlaybook)
	p.Get("/:id/executions", h.GetExecutions)

	router.Post("/executions/:id/approve", h.ApproveExecution)
}
