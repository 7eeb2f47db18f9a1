package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	now         func() time.Time
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the workflows of a project, or all of them when projectID is empty.
func (w *Workflow) List(ctx context.Context, projectID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Validate checks the workflow fields and that its graph can be executed:
// unique ids, edges between known nodes, a trigger entry point and no cycles.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	err := w.validate.Struct(workflow)
	if err != nil {
		return NewValidationError("Validate", "INVALID_WORKFLOW", fieldErrors(err), ErrInvalidRequest)
	}

	_, err = graph.New(workflow)
	if err != nil {
		return NewValidationError("Validate", "INVALID_GRAPH", err.Error(), ErrInvalidGraph)
	}

	return nil
}

// Create adds a new workflow to the repository.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	err := w.Validate(workflow)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces an existing workflow. Running executions keep referencing
// the workflow by id and see the new graph on their next advance.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*models.Workflow, error) {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	err = w.Validate(workflow)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = w.now().UTC()

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return err
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}
