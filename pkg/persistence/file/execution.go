package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

// ExecutionRepository stores one JSON document per execution.
// The version check and the write happen under one lock.
type ExecutionRepository struct {
	mu  sync.Mutex
	dir string
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (er *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	_, err := er.get(execution.ID)
	if err == nil {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	if !errors.Is(err, persistence.ErrExecutionNotFound) {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now
	execution.Version = 1

	return writeJSON(er.dir, execution.ID, execution)
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.get(id)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

func (er *ExecutionRepository) get(id string) (*models.Execution, error) {
	var execution models.Execution

	err := readJSON(er.dir, id, &execution)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, err
	}

	return &execution, nil
}

func (er *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	stored, err := er.get(execution.ID)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	if stored.Version != execution.Version {
		return persistence.NewVersionConflictError(execution.ID, execution.Version)
	}

	next := *execution
	next.Version++
	next.UpdatedAt = time.Now().UTC()

	err = writeJSON(er.dir, execution.ID, &next)
	if err != nil {
		return err
	}

	execution.Version = next.Version
	execution.UpdatedAt = next.UpdatedAt

	return nil
}

func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	return er.list(func(e *models.Execution) bool {
		return e.WorkflowID == workflowID
	}, func(a, b *models.Execution) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}, 0)
}

func (er *ExecutionRepository) ListDueScheduled(_ context.Context, now time.Time, limit int) ([]*models.Execution, error) {
	return er.list(func(e *models.Execution) bool {
		return e.Status == models.ExecutionStatusScheduled &&
			e.ContinueExecutionAt != nil &&
			!e.ContinueExecutionAt.After(now)
	}, func(a, b *models.Execution) bool {
		return a.ContinueExecutionAt.Before(*b.ContinueExecutionAt)
	}, limit)
}

func (er *ExecutionRepository) list(
	keep func(*models.Execution) bool,
	less func(a, b *models.Execution) bool,
	limit int,
) ([]*models.Execution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	ids, err := listIDs(er.dir)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		execution, err := er.get(id)
		if err != nil {
			// skip unreadable documents
			continue
		}

		if keep(execution) {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return less(executions[i], executions[j])
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func (er *ExecutionRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewExecutionError("Delete", id, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	err := os.Remove(filepath.Join(er.dir, id+".json"))
	if os.IsNotExist(err) {
		return persistence.NewExecutionError("Delete", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete execution %s: %w", id, err)
	}

	return nil
}
