package usecase

import (
	"context"
	"log/slog"
	"time"

	"CompetitorInsights/internal/ports"
)

// Job is one recurring unit of work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler wires the interval driver with the pipeline use cases.
type Scheduler struct {
	driver ports.Scheduler
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, logger *slog.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, jobs: jobs, logger: logger}
}

// Start registers the jobs with the provided scheduler. Jobs run in order on
// every trigger; a failing job does not prevent the next one.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || len(s.jobs) == 0 {
		return nil
	}

	tick := func(trigger time.Time) {
		for _, job := range s.jobs {
			if err := job.Run(ctx); err != nil {
				s.logger.Error("scheduled job failed", "job", job.Name, "trigger", trigger, "error", err)
			}
		}
	}

	return s.driver.Start(ctx, tick)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// ScrapeJob adapts the scrape pipeline to a Job.
func ScrapeJob(p *ScrapePipeline) Job {
	return Job{Name: "scrape", Run: func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}}
}

// DetectJob adapts the detect pipeline to a Job.
func DetectJob(p *DetectPipeline) Job {
	return Job{Name: "detect", Run: func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}}
}
