// Package persistence provides the storage abstraction for workflows and executions.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/flowrun/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	// List returns the workflows of a project, or every workflow when projectID is empty.
	List(ctx context.Context, projectID string) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores executions. The execution record is the only
// shared mutable state of the runner, so every write is version checked.
type ExecutionRepository interface {
	// Create stores a new execution with version 1.
	Create(ctx context.Context, execution *models.Execution) error

	GetByID(ctx context.Context, id string) (*models.Execution, error)

	// Update writes the execution only if the stored version equals execution.Version.
	// On success execution.Version is incremented; otherwise ErrVersionConflict is returned
	// and nothing is written.
	Update(ctx context.Context, execution *models.Execution) error

	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	// ListDueScheduled returns SCHEDULED executions whose wake time is at or before now,
	// earliest first.
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Execution, error)

	Delete(ctx context.Context, id string) error
}
