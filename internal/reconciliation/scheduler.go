package reconciliation

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers the job on a fixed interval, daily in production. A
// failed run is logged and the scheduler waits for the next tick; there is
// no retry within a run.
type Scheduler struct {
	job      *Job
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(job *Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("reconciliation scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.job.Run(ctx); err != nil {
				s.logger.Error("scheduled reconciliation failed", "error", err)
			}
		}
	}
}
