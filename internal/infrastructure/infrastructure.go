// Package infrastructure assembles the shared service foundations:
// lifecycle coordination, logging, the database pool with migrations,
// and the blob store. Domain systems are composed on top by the api
// package.
package infrastructure

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/sheetdrop/sheetdrop/internal/blob"
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/pkg/database"
	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
	"github.com/sheetdrop/sheetdrop/pkg/logging"
)

//go:embed migrations
var migrationsFS embed.FS

// Infrastructure holds the foundational systems shared by every module.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Blobs     blob.System
}

// New constructs the infrastructure from configuration. Nothing
// connects or touches disk here; Start performs the side effects.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := logging.New(&cfg.Logging)
	lc := lifecycle.New()

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	blobs, err := blob.New(&cfg.Blob, logger)
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Blobs:     blobs,
	}, nil
}

// Start connects the database, applies pending migrations, and
// registers teardown hooks with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("starting database: %w", err)
	}

	if err := i.Database.Migrate(migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	if err := i.Blobs.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("starting blob store: %w", err)
	}

	return nil
}
