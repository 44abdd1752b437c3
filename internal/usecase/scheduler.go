package usecase

import (
	"context"
	"log/slog"
	"time"

	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case. Each
// trigger processes yesterday's date relative to the trigger time.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	location *time.Location
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, location *time.Location, log *slog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{driver: driver, pipeline: pipeline, location: location, logger: log}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		date, err := domain.ResolveDate("", trigger.In(s.location))
		if err != nil {
			return
		}
		if err := s.pipeline.Run(ctx, date); err != nil && s.logger != nil {
			s.logger.Error("scheduled run failed", "date", date, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
