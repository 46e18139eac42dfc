// Package cmd provides shared initialization for the leadflow binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/persistence/file"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
	"github.com/leadflowhq/leadflow/pkg/persistence/redis"
)

// NewPersistence builds a persistence adapter from a database URL:
// redis:// for Redis, memory:// for the in-process store, anything else is
// treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "redis":
		store, err := redis.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create redis persistence: %w", err))
		}

		logger.InfoContext(ctx, "Using redis persistence")

		return store

	case "memory":
		logger.WarnContext(ctx, "Using in-memory persistence, data will not survive restarts")

		return memory.NewPersistence()

	default:
		logger.InfoContext(ctx, "Using file persistence", "path", databaseURL)

		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
