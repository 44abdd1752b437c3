package alert

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdigest/internal/ports"
)

func TestPublisherAlertDeliversJSONPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	subscriber := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer subscriber.Close()

	sub := subscriber.Subscribe(ctx, "pipeline-alerts")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewPublisherWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "pipeline-alerts")
	defer publisher.Close()

	payload := ports.AlertPayload{
		Stage:  "categorize",
		Date:   "06/25/2025",
		Reason: "job job-1: batch job timed out",
		JobID:  "job-1",
	}
	require.NoError(t, publisher.Alert(ctx, payload))

	select {
	case msg := <-sub.Channel():
		var got ports.AlertPayload
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no alert received")
	}
}

func TestPublisherAlertOmitsEmptyJobID(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	subscriber := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer subscriber.Close()

	sub := subscriber.Subscribe(ctx, "pipeline-alerts")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewPublisherWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "pipeline-alerts")
	defer publisher.Close()

	require.NoError(t, publisher.Alert(ctx, ports.AlertPayload{Stage: "extract", Date: "06/25/2025", Reason: "boom"}))

	select {
	case msg := <-sub.Channel():
		assert.NotContains(t, msg.Payload, "job_id")
	case <-time.After(2 * time.Second):
		t.Fatal("no alert received")
	}
}

func TestPublisherAlertReportsConnectionFailure(t *testing.T) {
	publisher := NewPublisherWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "pipeline-alerts")
	defer publisher.Close()

	err := publisher.Alert(context.Background(), ports.AlertPayload{Stage: "extract", Reason: "boom"})
	assert.Error(t, err)
}
