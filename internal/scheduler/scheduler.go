package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc is one unit of scheduled work, typically a pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler owns the daemon loop: it waits for each fire time of a cron
// schedule and calls run. Runs never overlap; a fire time that passes while
// a run is in progress is skipped.
type Scheduler struct {
	run            RunFunc
	schedule       cron.Schedule
	spec           string
	runImmediately bool
	logger         *slog.Logger
	now            func() time.Time
}

// NewScheduler parses spec as a standard 5-field cron expression (descriptors
// such as "@hourly" and "@every 6h" are accepted too).
func NewScheduler(spec string, runImmediately bool, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{
		run:            run,
		schedule:       schedule,
		spec:           spec,
		runImmediately: runImmediately,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Next returns the first fire time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run starts the loop. It optionally runs once immediately, then at each
// fire time. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"schedule", s.spec,
		"next_run", s.Next(s.now()).Format(time.RFC3339),
	)

	if s.runImmediately {
		s.runOnce(ctx)
	}

	for {
		next := s.Next(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := s.now()
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
	s.logger.Info("next run scheduled",
		"took", s.now().Sub(start).Round(time.Millisecond),
		"next_run", s.Next(s.now()).Format(time.RFC3339),
	)
}
