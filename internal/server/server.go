// Package server runs the HTTP server with graceful shutdown tied to
// the lifecycle coordinator.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
)

// Server wraps http.Server with lifecycle integration.
type Server struct {
	srv    *http.Server
	cfg    *config.ServerConfig
	logger *slog.Logger
}

// New creates a server for the given handler.
func New(cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeoutDuration(),
			WriteTimeout: cfg.WriteTimeoutDuration(),
			IdleTimeout:  cfg.IdleTimeoutDuration(),
		},
		cfg:    cfg,
		logger: logger.With("system", "server"),
	}
}

// Start registers the server with the lifecycle coordinator. Listening
// begins on startup; shutdown drains connections within the configured
// timeout once the coordinator's context is cancelled.
func (s *Server) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		go func() {
			s.logger.Info("server listening", "addr", s.srv.Addr)
			if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("server error", "error", err)
			}
		}()
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeoutDuration())
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return
		}
		s.logger.Info("server stopped")
	})

	return nil
}
