package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

// Scheduler periodically triggers refresh batches. Each invocation is
// independent: the orchestrator owns the batch deadline and never retries a
// whole batch, and singleton mode skips a tick while the previous batch still
// runs, so batches do not overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	orch      *recommend.Orchestrator
	interval  time.Duration
	log       *slog.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, orch *recommend.Orchestrator, log *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		orch:      orch,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic refresh job and starts the underlying
// scheduler. The first batch runs immediately so the API has data to serve
// before the first interval elapses.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().StartImmediately().Do(func() {
		result, err := s.orch.Run(context.Background())
		if err != nil {
			s.log.Error("refresh batch aborted", "error", err)
			return
		}
		if failed := result.FailedDistricts(); len(failed) > 0 {
			s.log.Warn("refresh batch had failures", "batch", result.ID, "districts", failed)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
