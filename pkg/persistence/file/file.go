// Package file provides file-based persistence for development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory of
// JSON documents, one file per record.
type Persistence struct {
	root       string
	mu         sync.RWMutex
	workflows  *workflowRepository
	executions *executionRepository
	users      *userRepository
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflows = &workflowRepository{p: p}
	p.executions = &executionRepository{p: p}
	p.users = &userRepository{p: p}

	return p
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

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return fmt.Errorf("persistence root %s does not exist: %w", p.root, err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) write(collection, id string, doc any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Join(p.root, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return persistence.NewStoreError("Save", id, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return persistence.NewStoreError("Save", id, err)
	}

	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644); err != nil {
		return persistence.NewStoreError("Save", id, err)
	}

	return nil
}

func (p *Persistence) read(collection, id string, doc any, notFound error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(p.root, collection, id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return persistence.NewStoreError("ByID", id, err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return persistence.NewStoreError("ByID", id, err)
	}

	return nil
}

func (p *Persistence) ids(collection string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(p.root, collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("List", collection, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

type workflowRepository struct {
	p *Persistence
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	return r.p.write("workflows", workflow.ID, workflow)
}

func (r *workflowRepository) ByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := r.p.read("workflows", id, &workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (r *workflowRepository) ByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	ids, err := r.p.ids("workflows")
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0)

	for _, id := range ids {
		workflow, err := r.ByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if workflow.OwnerID == ownerID {
			workflows = append(workflows, workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	err := os.Remove(filepath.Join(r.p.root, "workflows", id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}

type executionRepository struct {
	p *Persistence
}

func (r *executionRepository) Save(_ context.Context, execution *models.Execution) error {
	return r.p.write("executions", execution.ID, execution)
}

func (r *executionRepository) ByID(_ context.Context, id string) (*models.Execution, error) {
	var execution models.Execution
	if err := r.p.read("executions", id, &execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return &execution, nil
}

func (r *executionRepository) ByUser(ctx context.Context, userID string) ([]*models.Execution, error) {
	ids, err := r.p.ids("executions")
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		execution, err := r.ByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if execution.UserID == userID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (r *executionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int, error) {
	ids, err := r.p.ids("executions")
	if err != nil {
		return 0, err
	}

	count := 0

	for _, id := range ids {
		execution, err := r.ByID(ctx, id)
		if err != nil {
			return 0, err
		}

		if execution.WorkflowID == workflowID {
			count++
		}
	}

	return count, nil
}

// storedUser carries the password hash, which the API representation of
// models.User deliberately omits.
type storedUser struct {
	models.User

	PasswordHash []byte `json:"password_hash"`
}

type userRepository struct {
	p *Persistence
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	existing, err := r.ByEmail(ctx, user.Email)
	if err != nil && !persistence.IsUserNotFound(err) {
		return err
	}

	if existing != nil && existing.ID != user.ID {
		return persistence.ErrUserAlreadyExists
	}

	return r.p.write("users", user.ID, &storedUser{User: *user, PasswordHash: user.PasswordHash})
}

func (r *userRepository) ByID(_ context.Context, id string) (*models.User, error) {
	var stored storedUser
	if err := r.p.read("users", id, &stored, persistence.ErrUserNotFound); err != nil {
		return nil, err
	}

	user := stored.User
	user.PasswordHash = stored.PasswordHash

	return &user, nil
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	ids, err := r.p.ids("users")
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		user, err := r.ByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if user.Email == email {
			return user, nil
		}
	}

	return nil, persistence.ErrUserNotFound
}
