// Package cmd provides common initialization for the command-line
// entrypoints.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/atelierhq/easel/pkg/persistence/file"
	"github.com/atelierhq/easel/pkg/persistence/postgres"
	"github.com/atelierhq/easel/pkg/persistence/redis"
)

// NewPersistence selects a store from the database URL scheme:
// postgres:// for PostgreSQL, redis:// for Redis, anything else is
// treated as a file root.
func NewPersistence(ctx context.Context, databaseURL string, logger *slog.Logger) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://"):
		persist, err := postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to connect to postgres: " + err.Error())
		}

		logger.Info("Using postgres persistence")

		return persist
	case strings.HasPrefix(databaseURL, "redis://") || strings.HasPrefix(databaseURL, "rediss://"):
		persist, err := redis.NewPersistence(databaseURL)
		if err != nil {
			panic("failed to connect to redis: " + err.Error())
		}

		logger.Info("Using redis persistence")

		return persist
	default:
		logger.Info("Using file persistence", "root", databaseURL)

		return file.NewPersistence(databaseURL)
	}
}
