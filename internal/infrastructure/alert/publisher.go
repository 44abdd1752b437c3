package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blogdigest/internal/config"
	"blogdigest/internal/ports"
)

// Publisher pushes structured error payloads onto a redis pub/sub
// channel consumed by the operational alerting stack.
type Publisher struct {
	client  *redis.Client
	channel string
}

var _ ports.Alerter = (*Publisher)(nil)

// NewPublisher connects to redis with the configured address.
func NewPublisher(cfg config.AlertConfig) *Publisher {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	return &Publisher{client: client, channel: cfg.Channel}
}

// NewPublisherWithClient wires an existing client, used by tests.
func NewPublisherWithClient(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Alert publishes one payload as JSON. Alerting failures are reported to
// the caller but never abort a pipeline stage.
func (p *Publisher) Alert(ctx context.Context, payload ports.AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
