package web

import (
	"errors"

	"github.com/dukex/deskflow/pkg/engine"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/dukex/deskflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		problemType := "validation_error"
		if code := services.Code(err); code != "" {
			problemType = code
		}

		return problem(c, fiber.StatusBadRequest, problemType, err.Error())

	case persistence.IsPlaybookNotFound(err):
		return problem(c, fiber.StatusNotFound, "playbook_not_found", "playbook not found")

	case persistence.IsExecutionNotFound(err):
		return problem(c, fiber.StatusNotFound, "execution_not_found", "execution not found")

	case errors.Is(err, persistence.ErrInvalidID):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}

// handleEngineError maps orchestrator errors to HTTP problems.
func handleEngineError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engine.ErrMissingUserID):
		return badRequest(c, err.Error())

	case errors.Is(err, engine.ErrDuplicateTrigger):
		return problem(c, fiber.StatusConflict, "duplicate_trigger", err.Error())

	case errors.Is(err, engine.ErrForbidden):
		return problem(c, fiber.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, engine.ErrNotPending), errors.Is(err, engine.ErrAlreadyApproved):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	default:
		return handleServiceError(c, err)
	}
}
