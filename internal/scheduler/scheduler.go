// Package scheduler runs periodic jobs on cron schedules.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled job.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron *cron.Cron
}

// New creates a scheduler using standard five-field specs plus descriptors
// such as "@hourly" and "@every 15m".
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

// AddJob registers a job. Schedule examples:
//   - "*/5 * * * *" - every 5 minutes
//   - "@hourly"     - every hour
//   - "@every 15m"  - every 15 minutes
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		slog.Debug("running job", "job", job.Name())

		if err := job.Run(); err != nil {
			slog.Error("job failed",
				"job", job.Name(),
				"error", err,
			)
		} else {
			slog.Debug("job completed", "job", job.Name())
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	slog.Info("job registered",
		"schedule", schedule,
		"job", job.Name(),
	)

	return nil
}

// RunNow executes a job immediately (outside schedule).
func (s *Scheduler) RunNow(job Job) error {
	slog.Info("running job immediately", "job", job.Name())
	return job.Run()
}
