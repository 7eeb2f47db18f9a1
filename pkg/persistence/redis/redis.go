// Package redis provides a Redis persistence backend for workflows and executions.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "flowrun:"

// Persistence stores JSON documents under string keys with sorted-set indexes.
type Persistence struct {
	client        *goredis.Client
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence connects to the Redis server at url (redis://host:port/db).
func NewPersistence(ctx context.Context, url string) (*Persistence, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &Persistence{
		client:        client,
		workflowRepo:  NewWorkflowRepository(client),
		executionRepo: NewExecutionRepository(client),
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	return nil
}

// Close closes the underlying Redis client.
func (p *Persistence) Close(_ context.Context) error {
	if p.client == nil {
		return nil
	}

	return p.client.Close()
}

func workflowKey(id string) string             { return keyPrefix + "workflow:" + id }
func workflowAllIndexKey() string              { return keyPrefix + "workflows" }
func workflowProjectIndexKey(id string) string { return keyPrefix + "project:" + id + ":workflows" }
func executionKey(id string) string            { return keyPrefix + "execution:" + id }
func executionWorkflowIndexKey(id string) string {
	return keyPrefix + "workflow:" + id + ":executions"
}

// executionDueIndexKey is a sorted set of SCHEDULED executions scored by wake time.
func executionDueIndexKey() string { return keyPrefix + "executions:due" }

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
