package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/faceaccess/internal/config"
	"github.com/your-org/faceaccess/internal/storage"
)

// openStore connects to Postgres and brings the schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*storage.PostgresStore, error) {
	db, err := storage.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	applied, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		slog.Info("database migrated", "applied", applied)
	}
	return db, nil
}
