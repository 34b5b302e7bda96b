package api

import (
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/infrastructure"
	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

// Runtime extends Infrastructure with API-scoped configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Blobs:     infra.Blobs,
		},
		Pagination: cfg.Pagination,
	}
}
