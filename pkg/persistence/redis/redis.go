// Package redis provides Redis-backed document persistence for workflows,
// executions, and users.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	workflowKeyPrefix  = "easel:workflows:"
	executionKeyPrefix = "easel:executions:"
	userKeyPrefix      = "easel:users:"
	emailIndexPrefix   = "easel:users:email:"
	ownerIndexPrefix   = "easel:index:owner:"     // set of workflow ids per owner
	userExecIndex      = "easel:index:executions:" // zset of execution ids per user, scored by start time
	workflowExecIndex  = "easel:index:wfexec:"     // set of execution ids per workflow
)

// Persistence implements persistence.Persistence on a Redis instance. Each
// record is one JSON document; listing indexes are kept as sets and sorted
// sets alongside.
type Persistence struct {
	client     goredis.UniversalClient
	workflows  *workflowRepository
	executions *executionRepository
	users      *userRepository
}

func NewPersistence(url string) (*Persistence, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	p := &Persistence{client: client}
	p.workflows = &workflowRepository{client: client}
	p.executions = &executionRepository{client: client}
	p.users = &userRepository{client: client}

	return p, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) Users() persistence.UserRepository {
	return p.users
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func getJSON(ctx context.Context, client goredis.UniversalClient, key string, doc any, notFound error) error {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return notFound
		}

		return persistence.NewStoreError("Get", key, err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return persistence.NewStoreError("Get", key, err)
	}

	return nil
}

type workflowRepository struct {
	client goredis.UniversalClient
}

func (r *workflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewStoreError("Save", workflow.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, workflowKeyPrefix+workflow.ID, data, 0)
	pipe.SAdd(ctx, ownerIndexPrefix+workflow.OwnerID, workflow.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Save", workflow.ID, err)
	}

	return nil
}

func (r *workflowRepository) ByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := getJSON(ctx, r.client, workflowKeyPrefix+id, &workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (r *workflowRepository) ByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	ids, err := r.client.SMembers(ctx, ownerIndexPrefix+ownerID).Result()
	if err != nil {
		return nil, persistence.NewStoreError("ByOwner", ownerID, err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.ByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	workflow, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, workflowKeyPrefix+id)
	pipe.SRem(ctx, ownerIndexPrefix+workflow.OwnerID, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Delete", id, err)
	}

	return nil
}

type executionRepository struct {
	client goredis.UniversalClient
}

func (r *executionRepository) Save(ctx context.Context, execution *models.Execution) error {
	data, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewStoreError("Save", execution.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, executionKeyPrefix+execution.ID, data, 0)
	pipe.ZAdd(ctx, userExecIndex+execution.UserID, goredis.Z{
		Score:  float64(execution.StartedAt.UnixNano()),
		Member: execution.ID,
	})
	pipe.SAdd(ctx, workflowExecIndex+execution.WorkflowID, execution.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Save", execution.ID, err)
	}

	return nil
}

func (r *executionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	var execution models.Execution
	if err := getJSON(ctx, r.client, executionKeyPrefix+id, &execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return &execution, nil
}

func (r *executionRepository) ByUser(ctx context.Context, userID string) ([]*models.Execution, error) {
	ids, err := r.client.ZRevRange(ctx, userExecIndex+userID, 0, -1).Result()
	if err != nil {
		return nil, persistence.NewStoreError("ByUser", userID, err)
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := r.ByID(ctx, id)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				continue
			}

			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}

func (r *executionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int, error) {
	count, err := r.client.SCard(ctx, workflowExecIndex+workflowID).Result()
	if err != nil {
		return 0, persistence.NewStoreError("CountByWorkflow", workflowID, err)
	}

	return int(count), nil
}

// storedUser carries the password hash, which the API representation of
// models.User deliberately omits.
type storedUser struct {
	models.User

	PasswordHash []byte `json:"password_hash"`
}

type userRepository struct {
	client goredis.UniversalClient
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	claimed, err := r.client.SetNX(ctx, emailIndexPrefix+user.Email, user.ID, 0).Result()
	if err != nil {
		return persistence.NewStoreError("Save", user.ID, err)
	}

	if !claimed {
		owner, err := r.client.Get(ctx, emailIndexPrefix+user.Email).Result()
		if err != nil {
			return persistence.NewStoreError("Save", user.ID, err)
		}

		if owner != user.ID {
			return persistence.ErrUserAlreadyExists
		}
	}

	data, err := json.Marshal(&storedUser{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		return persistence.NewStoreError("Save", user.ID, err)
	}

	if err := r.client.Set(ctx, userKeyPrefix+user.ID, data, 0).Err(); err != nil {
		return persistence.NewStoreError("Save", user.ID, err)
	}

	return nil
}

func (r *userRepository) ByID(ctx context.Context, id string) (*models.User, error) {
	var stored storedUser
	if err := getJSON(ctx, r.client, userKeyPrefix+id, &stored, persistence.ErrUserNotFound); err != nil {
		return nil, err
	}

	user := stored.User
	user.PasswordHash = stored.PasswordHash

	return &user, nil
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := r.client.Get(ctx, emailIndexPrefix+email).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrUserNotFound
		}

		return nil, persistence.NewStoreError("ByEmail", email, err)
	}

	return r.ByID(ctx, id)
}
