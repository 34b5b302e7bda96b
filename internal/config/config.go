// Package config provides application configuration management with support for
// TOML files, environment variable overrides, and configuration overlays.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/sheetdrop/sheetdrop/pkg/database"
	"github.com/sheetdrop/sheetdrop/pkg/logging"
	"github.com/sheetdrop/sheetdrop/pkg/middleware"
	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

const (
	// BaseConfigFile is the primary configuration file name.
	BaseConfigFile = "config.toml"

	// OverlayConfigPattern is the file name pattern for environment-specific overlays.
	OverlayConfigPattern = "config.%s.toml"

	// EnvServiceEnv specifies the environment name for configuration overlays.
	EnvServiceEnv = "SERVICE_ENV"
)

var databaseEnv = &database.Env{
	Host:     "DATABASE_HOST",
	Port:     "DATABASE_PORT",
	Name:     "DATABASE_NAME",
	User:     "DATABASE_USER",
	Password: "DATABASE_PASSWORD",
	SSLMode:  "DATABASE_SSL_MODE",
}

var loggingEnv = &logging.Env{
	Level:  "LOG_LEVEL",
	Format: "LOG_FORMAT",
}

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CORS_ENABLED",
	Origins:          "CORS_ORIGINS",
	AllowedMethods:   "CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CORS_ALLOWED_HEADERS",
	AllowCredentials: "CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "PAGINATION_MAX_PAGE_SIZE",
}

// Config represents the root service configuration.
type Config struct {
	Server     ServerConfig           `toml:"server"`
	Database   database.Config        `toml:"database"`
	Logging    logging.Config         `toml:"logging"`
	CORS       middleware.CORSConfig  `toml:"cors"`
	Blob       BlobConfig             `toml:"blob"`
	Quota      QuotaConfig            `toml:"quota"`
	Convert    ConvertConfig          `toml:"convert"`
	Extraction ExtractionConfig       `toml:"extraction"`
	Pagination pagination.Config      `toml:"pagination"`
}

// Load reads and parses the base configuration file and applies any
// environment-specific overlay.
func Load() (*Config, error) {
	cfg, err := load(BaseConfigFile)
	if err != nil {
		return nil, err
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize() error {
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Logging.Finalize(loggingEnv); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Blob.Finalize(); err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	if err := c.Quota.Finalize(); err != nil {
		return fmt.Errorf("quota: %w", err)
	}
	if err := c.Convert.Finalize(); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if err := c.Extraction.Finalize(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Logging.Merge(&overlay.Logging)
	c.CORS.Merge(&overlay.CORS)
	c.Blob.Merge(&overlay.Blob)
	c.Quota.Merge(&overlay.Quota)
	c.Convert.Merge(&overlay.Convert)
	c.Extraction.Merge(&overlay.Extraction)
	c.Pagination.Merge(&overlay.Pagination)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvServiceEnv); env != "" {
		overlayPath := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(overlayPath); err == nil {
			return overlayPath
		}
	}
	return ""
}
