package convert

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
)

// WorkerPool runs concurrent extraction workers over the queued jobs.
// Each worker drains the queue, then sleeps for the poll interval.
type WorkerPool struct {
	sys    System
	cfg    config.ConvertConfig
	logger *slog.Logger
}

// NewWorkerPool creates an extraction worker pool.
func NewWorkerPool(sys System, cfg config.ConvertConfig, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		sys:    sys,
		cfg:    cfg,
		logger: logger.With("system", "convert.workers"),
	}
}

// Start registers the pool with the lifecycle coordinator. Workers stop
// when the coordinator's context is cancelled; Stop waits for in-flight
// attempts to finish.
func (p *WorkerPool) Start(lc *lifecycle.Coordinator) error {
	done := make(chan struct{})

	lc.OnStartup(func() {
		go func() {
			defer close(done)
			p.run(lc.Context())
		}()
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
		p.logger.Info("worker pool stopped")
	})

	return nil
}

func (p *WorkerPool) run(ctx context.Context) {
	p.logger.Info("worker pool starting", "workers", p.cfg.Workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			p.worker(ctx, id)
			return nil
		})
	}
	g.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	logger := p.logger.With("worker", id)
	interval := p.cfg.PollIntervalDuration()

	for {
		claimed, err := p.sys.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("processing failed", "error", err)
		}

		if claimed {
			// Keep draining while work is available.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
