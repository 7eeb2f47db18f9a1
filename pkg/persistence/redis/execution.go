package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// ExecutionRepository stores executions as JSON documents. Writes run inside
// WATCH/MULTI so the version check and the write are one atomic step.
type ExecutionRepository struct {
	client *goredis.Client
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(client *goredis.Client) *ExecutionRepository {
	return &ExecutionRepository{client: client}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrInvalidID)
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	created := *execution
	created.Version = 1
	key := executionKey(execution.ID)

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}

		if exists > 0 {
			return persistence.ErrExecutionAlreadyExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			return writeExecution(ctx, pipe, &created)
		})

		return err
	}, key)
	if errors.Is(err, goredis.TxFailedErr) {
		err = persistence.ErrExecutionAlreadyExists
	}

	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	execution.Version = created.Version

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := get(ctx, r.client, id)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	key := executionKey(execution.ID)
	next := *execution

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		stored, err := get(ctx, tx, execution.ID)
		if err != nil {
			return err
		}

		if stored.Version != execution.Version {
			return persistence.ErrVersionConflict
		}

		next.Version = stored.Version + 1
		next.UpdatedAt = time.Now().UTC()

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			return writeExecution(ctx, pipe, &next)
		})

		return err
	}, key)

	switch {
	case errors.Is(err, goredis.TxFailedErr), errors.Is(err, persistence.ErrVersionConflict):
		return persistence.NewVersionConflictError(execution.ID, execution.Version)
	case err != nil:
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	execution.Version = next.Version
	execution.UpdatedAt = next.UpdatedAt

	return nil
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	ids, err := r.client.ZRevRange(ctx, executionWorkflowIndexKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return r.load(ctx, ids, nil)
}

func (r *ExecutionRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = 100
	}

	ids, err := r.client.ZRangeByScore(ctx, executionDueIndexKey(), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(score(now), 'f', -1, 64),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due executions: %w", err)
	}

	return r.load(ctx, ids, func(e *models.Execution) bool {
		return e.Status == models.ExecutionStatusScheduled &&
			e.ContinueExecutionAt != nil &&
			!e.ContinueExecutionAt.After(now)
	})
}

func (r *ExecutionRepository) Delete(ctx context.Context, id string) error {
	execution, err := get(ctx, r.client, id)
	if err != nil {
		return persistence.NewExecutionError("Delete", id, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, executionKey(id))
	pipe.ZRem(ctx, executionWorkflowIndexKey(execution.WorkflowID), id)
	pipe.ZRem(ctx, executionDueIndexKey(), id)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return persistence.NewExecutionError("Delete", id, err)
	}

	return nil
}

func (r *ExecutionRepository) load(ctx context.Context, ids []string, keep func(*models.Execution) bool) ([]*models.Execution, error) {
	executions := make([]*models.Execution, 0, len(ids))
	if len(ids) == 0 {
		return executions, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*goredis.StringCmd, len(ids))

	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, executionKey(id))
	}

	_, _ = pipe.Exec(ctx)

	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}

		var execution models.Execution
		if err := json.Unmarshal(data, &execution); err != nil {
			continue
		}

		if keep == nil || keep(&execution) {
			executions = append(executions, &execution)
		}
	}

	return executions, nil
}

func get(ctx context.Context, client goredis.Cmdable, id string) (*models.Execution, error) {
	data, err := client.Get(ctx, executionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, err
	}

	var execution models.Execution

	err = json.Unmarshal(data, &execution)
	if err != nil {
		return nil, fmt.Errorf("unmarshal execution: %w", err)
	}

	return &execution, nil
}

// writeExecution queues the document write and keeps the due index in step with the status.
func writeExecution(ctx context.Context, pipe goredis.Pipeliner, execution *models.Execution) error {
	payload, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}

	pipe.Set(ctx, executionKey(execution.ID), payload, 0)
	pipe.ZAdd(ctx, executionWorkflowIndexKey(execution.WorkflowID), goredis.Z{
		Score:  score(execution.CreatedAt),
		Member: execution.ID,
	})

	if execution.Status == models.ExecutionStatusScheduled && execution.ContinueExecutionAt != nil {
		pipe.ZAdd(ctx, executionDueIndexKey(), goredis.Z{
			Score:  score(*execution.ContinueExecutionAt),
			Member: execution.ID,
		})
	} else {
		pipe.ZRem(ctx, executionDueIndexKey(), execution.ID)
	}

	return nil
}
