package events

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/logger"
)

// RedisBus broadcasts events over Redis pub/sub so subscribers on other
// engine instances see mutations committed here. Channel naming is one
// channel per entity id.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func channelFor(entityID uuid.UUID) string {
	return "entity-events:" + entityID.String()
}

func (b *RedisBus) Publish(ctx context.Context, ev domain.EntityEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Failed to encode entity event", "error", err, "entity_id", ev.EntityID)
		return
	}
	if err := b.client.Publish(ctx, channelFor(ev.EntityID), payload).Err(); err != nil {
		// Publish failures never fail the transition; subscribers re-fetch.
		logger.Error("Failed to publish entity event", "error", err, "entity_id", ev.EntityID)
	}
}

func (b *RedisBus) Subscribe(entityID uuid.UUID) (<-chan domain.EntityEvent, func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, channelFor(entityID))
	out := make(chan domain.EntityEvent, subscriberBuffer)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev domain.EntityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("Skipping malformed entity event", "error", err, "entity_id", entityID)
				continue
			}
			select {
			case out <- ev:
			default:
				logger.Warn("Dropping event for slow subscriber", "entity_id", entityID)
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
		cancelCtx()
	}
	return out, cancel
}
