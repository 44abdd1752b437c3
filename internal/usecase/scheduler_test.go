package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdigest/internal/domain"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(_ context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineForYesterday(t *testing.T) {
	t.Parallel()

	store := newMemoryPostStore(
		domain.Post{ID: "p1", Date: "06/25/2025", Categories: []string{"compute"}, Processed: true},
	)
	snapshots := &stubSnapshotStore{}
	driver := &manualDriver{}

	pipeline := NewPipeline(PipelineDeps{
		Posts:       store,
		Snapshots:   snapshots,
		Subscribers: &stubSubscriberStore{},
		Mailer:      &stubMailer{},
	})

	scheduler := NewScheduler(driver, pipeline, time.UTC, nil)
	require.NoError(t, scheduler.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Date(2025, time.June, 26, 6, 0, 0, 0, time.UTC))

	require.Len(t, snapshots.saved, 1)
	assert.Equal(t, "06/25/2025", snapshots.saved[0].Date)

	require.NoError(t, scheduler.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsInert(t *testing.T) {
	t.Parallel()

	scheduler := NewScheduler(nil, nil, nil, nil)
	assert.NoError(t, scheduler.Start(context.Background()))
	assert.NoError(t, scheduler.Stop(context.Background()))
}
