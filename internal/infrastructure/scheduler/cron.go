package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"blogdigest/internal/ports"
)

// CronScheduler drives recurring pipeline runs from a cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	cron     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start registers the job and begins the cron loop.
func (c *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.location))
	if _, err := runner.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}

	runner.Start()
	c.cron = runner
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}

	done := c.cron.Stop().Done()
	c.cron = nil

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
