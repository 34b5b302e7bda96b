// Package api composes the domain systems into the HTTP surface and
// wires the shared middleware chain.
package api

import (
	"net/http"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/infrastructure"
	"github.com/sheetdrop/sheetdrop/pkg/middleware"
	"github.com/sheetdrop/sheetdrop/pkg/routes"
)

// Module is the assembled API: the HTTP handler plus the domain systems
// that background workers run against.
type Module struct {
	Handler http.Handler
	Domain  *Domain
}

// NewModule builds the domain systems, registers all routes, and wraps
// the handler in the middleware chain.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) *Module {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	r := routes.New(runtime.Logger)
	registerRoutes(r, runtime, domain, cfg)

	handler := middleware.Logger(runtime.Logger, r.Build())
	handler = middleware.CORS(&cfg.CORS, handler)

	return &Module{
		Handler: handler,
		Domain:  domain,
	}
}
