// Package postgres provides PostgreSQL-backed document persistence for
// workflows, executions, and users.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/atelierhq/easel/pkg/persistence"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements persistence.Persistence on a PostgreSQL
// database. Each record is one JSONB document; the columns the list
// queries filter and sort on are extracted alongside it.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	workflows  *workflowRepository
	executions *executionRepository
	users      *userRepository
}

// NewPersistence opens the database, verifies connectivity, and brings
// the schema up to date before returning.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, logger, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         db,
		logger:     logger,
		workflows:  &workflowRepository{db: db},
		executions: &executionRepository{db: db},
		users:      &userRepository{db: db},
	}, nil
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
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
