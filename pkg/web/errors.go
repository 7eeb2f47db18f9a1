package web

import (
	"errors"

	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/workflow"
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

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps service, runner and persistence errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err),
		protocol.IsValidationError(err),
		errors.Is(err, workflow.ErrInvalidWorkflow):
		return badRequest(c, err.Error())

	case persistence.IsWorkflowNotFound(err):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return problem(c, fiber.StatusNotFound, "execution_not_found", "execution not found")

	case errors.Is(err, workflow.ErrNodeNotFound):
		return problem(c, fiber.StatusNotFound, "node_not_found", "node not found")

	case errors.Is(err, workflow.ErrNodeNotPaused),
		errors.Is(err, workflow.ErrExecutionNotResumable),
		errors.Is(err, workflow.ErrNoWebhookListener):
		return problem(c, fiber.StatusConflict, "not_resumable", err.Error())

	case errors.Is(err, workflow.ErrConcurrencyConflict),
		persistence.IsVersionConflict(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	default:
		return internalError(c, err)
	}
}
