// Package persistence provides the storage abstraction for workflows,
// executions, and users.
package persistence

import (
	"context"

	"github.com/atelierhq/easel/pkg/models"
)

// Persistence bundles the repositories backed by one store.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Users() UserRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow documents keyed by id.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	ByID(ctx context.Context, id string) (*models.Workflow, error)
	ByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution documents keyed by id. Each write
// replaces the whole document; only one executor ever writes a given id.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	ByID(ctx context.Context, id string) (*models.Execution, error)

	// ByUser lists a user's executions, most-recent-first.
	ByUser(ctx context.Context, userID string) ([]*models.Execution, error)

	CountByWorkflow(ctx context.Context, workflowID string) (int, error)
}

// UserRepository stores user documents keyed by id, with a unique email
// index.
type UserRepository interface {
	Save(ctx context.Context, user *models.User) error
	ByID(ctx context.Context, id string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
}
