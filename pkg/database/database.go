package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
)

// System manages the database connection pool and schema migrations.
type System interface {
	DB() *sql.DB
	Migrate(fsys fs.FS, dir string) error
	Start(lc *lifecycle.Coordinator) error
}

type system struct {
	db     *sql.DB
	cfg    *Config
	logger *slog.Logger
}

// New opens a pooled connection to PostgreSQL using the pgx driver.
// The connection is verified on Start, not here.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &system{
		db:     db,
		cfg:    cfg,
		logger: logger.With("system", "database"),
	}, nil
}

// DB returns the underlying connection pool.
func (s *system) DB() *sql.DB {
	return s.db
}

// Migrate applies all pending migrations from dir within fsys.
// Already-applied migrations are skipped.
func (s *system) Migrate(fsys fs.FS, dir string) error {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.cfg.Name, driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}

	s.logger.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// Start verifies connectivity and registers pool teardown with the coordinator.
func (s *system) Start(lc *lifecycle.Coordinator) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnTimeoutDuration())
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	s.logger.Info("database connected", "host", s.cfg.Host, "name", s.cfg.Name)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		}
	})

	return nil
}
