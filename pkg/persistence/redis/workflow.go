package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// WorkflowRepository keeps workflow documents indexed globally and per project.
type WorkflowRepository struct {
	client *goredis.Client
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(client *goredis.Client) *WorkflowRepository {
	return &WorkflowRepository{client: client}
}

// List returns workflows newest first.
func (r *WorkflowRepository) List(ctx context.Context, projectID string) ([]*models.Workflow, error) {
	index := workflowAllIndexKey()
	if projectID != "" {
		index = workflowProjectIndexKey(projectID)
	}

	ids, err := r.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))
	if len(ids) == 0 {
		return workflows, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*goredis.StringCmd, len(ids))

	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, workflowKey(id))
	}

	_, _ = pipe.Exec(ctx)

	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}

		var workflow models.Workflow
		if err := json.Unmarshal(data, &workflow); err != nil {
			continue
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := r.client.Get(ctx, workflowKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(data, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("unmarshal workflow: %w", err))
	}

	return &workflow, nil
}

// Save upserts a workflow and refreshes its indexes. An empty id gets a UUIDv7.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	previous, err := r.GetByID(ctx, workflow.ID)
	if err != nil && !persistence.IsWorkflowNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	payload, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}

	member := goredis.Z{Score: score(workflow.CreatedAt), Member: workflow.ID}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, workflowKey(workflow.ID), payload, 0)
	pipe.ZAdd(ctx, workflowAllIndexKey(), member)

	if previous != nil && previous.ProjectID != workflow.ProjectID {
		pipe.ZRem(ctx, workflowProjectIndexKey(previous.ProjectID), workflow.ID)
	}

	pipe.ZAdd(ctx, workflowProjectIndexKey(workflow.ProjectID), member)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	workflow, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, workflowKey(id))
	pipe.ZRem(ctx, workflowAllIndexKey(), id)
	pipe.ZRem(ctx, workflowProjectIndexKey(workflow.ProjectID), id)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
