// Package web provides HTTP handlers and REST API endpoints for workflows and their executions.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	manager         *workflow.Manager
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	manager *workflow.Manager,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		manager:         manager,
		validator:       validator,
		registry:        registry,
	}
}

// RegisterRoutes mounts every API endpoint on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/actions", h.GetActions)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/executions", h.StartExecution)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	e := router.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/nodes/:nodeId/resume", h.ResumeNode)
	e.Post("/:id/nodes/:nodeId/paths", h.ResumeWithPaths)

	router.Post("/webhooks/executions/:id", h.ResumeWebhook)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "flowrun API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "flowrun API is healthy"
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

func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	factories := h.registry.ActionFactories()

	actions := make([]ActionResponse, 0, len(factories))
	for _, factory := range factories {
		actions = append(actions, TransformActionResponse(factory))
	}

	return c.JSON(fiber.Map{"actions": actions})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), c.Query("project_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	executionID, err := h.manager.StartExecution(c.Context(), c.Params("id"), req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	execution, err := h.manager.GetExecution(c.Context(), executionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(StartExecutionResponse{
		ExecutionID: executionID,
		Execution:   execution,
	})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	workflowID := c.Params("id")

	if _, err := h.workflowService.FetchByID(c.Context(), workflowID); err != nil {
		return handleServiceError(c, err)
	}

	executions, err := h.manager.ListExecutions(c.Context(), workflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.manager.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ResumeNode(c fiber.Ctx) error {
	var req ResumeNodeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.manager.ResumeNode(c.Context(), c.Params("id"), c.Params("nodeId"), req.Data)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ResumeWithPaths(c fiber.Ctx) error {
	var req PathDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.manager.ResumeWithPaths(c.Context(), c.Params("id"), c.Params("nodeId"), req.PathsToTake)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// ResumeWebhook delivers an arbitrary JSON body to the execution's waiting webhook listener.
func (h *APIHandlers) ResumeWebhook(c fiber.Ctx) error {
	payload := map[string]any{}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &payload); err != nil {
			return badRequest(c, "Webhook body must be a JSON object")
		}
	}

	execution, err := h.manager.ResumeWebhook(c.Context(), c.Params("id"), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}
