package events

import (
	"context"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
)

// Bus broadcasts entity state changes to subscribers of a given entity id.
// Delivery is at-least-once per subscriber; events are invalidation hints,
// subscribers re-fetch current state. Publish never fails the transition
// that produced the event: implementations log and drop on failure, and
// publication always happens after the store commit, never as part of it.
type Bus interface {
	// Publish broadcasts one event for a committed mutation.
	Publish(ctx context.Context, ev domain.EntityEvent)

	// Subscribe registers interest in a single entity id. The returned
	// cancel func must be called when leaving the detail view; it closes
	// the channel.
	Subscribe(entityID uuid.UUID) (<-chan domain.EntityEvent, func())
}
