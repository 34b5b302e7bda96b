package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sheetdrop/sheetdrop/internal/api"
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/convert"
	"github.com/sheetdrop/sheetdrop/internal/infrastructure"
	"github.com/sheetdrop/sheetdrop/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("finalizing configuration: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return fmt.Errorf("building infrastructure: %w", err)
	}
	if err := infra.Start(); err != nil {
		return err
	}

	module := api.NewModule(cfg, infra)

	workers := convert.NewWorkerPool(module.Domain.Convert, cfg.Convert, infra.Logger)
	if err := workers.Start(infra.Lifecycle); err != nil {
		return fmt.Errorf("starting workers: %w", err)
	}

	sweeper := convert.NewSweeper(module.Domain.Jobs, cfg.Convert, infra.Logger)
	if err := sweeper.Start(infra.Lifecycle); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}

	srv := server.New(&cfg.Server, module.Handler, infra.Logger)
	if err := srv.Start(infra.Lifecycle); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	infra.Lifecycle.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	infra.Logger.Info("shutting down", "signal", received.String())
	infra.Lifecycle.Stop()

	return nil
}
