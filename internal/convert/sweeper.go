package convert

import (
	"context"
	"log/slog"
	"time"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
)

// Sweeper periodically reclaims jobs stranded in PROCESSING by a
// crashed or stalled worker. Stranded jobs with attempts remaining go
// back to the queue; the rest fail permanently.
type Sweeper struct {
	jobs   jobs.System
	cfg    config.ConvertConfig
	logger *slog.Logger
}

// NewSweeper creates a stuck-job sweeper.
func NewSweeper(jobSys jobs.System, cfg config.ConvertConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		jobs:   jobSys,
		cfg:    cfg,
		logger: logger.With("system", "convert.sweeper"),
	}
}

// Start registers the sweeper with the lifecycle coordinator.
func (s *Sweeper) Start(lc *lifecycle.Coordinator) error {
	done := make(chan struct{})

	lc.OnStartup(func() {
		go func() {
			defer close(done)
			s.run(lc.Context())
		}()
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
	})

	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.jobs.SweepStuck(ctx, s.cfg.ProcessingCeilingDuration(), s.cfg.MaxAttempts)
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		return
	}

	if result.Requeued > 0 || result.Exhausted > 0 {
		s.logger.Warn("reclaimed stuck jobs",
			"requeued", result.Requeued,
			"exhausted", result.Exhausted)
	}
}
