package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/logger"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped. Dropped events are tolerated: clients re-fetch on every hint.
const subscriberBuffer = 16

// MemoryBus is the in-process Bus used for single-instance deployments and
// tests. Fan-out is per entity id with non-blocking sends.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[uuid.UUID]map[int]chan domain.EntityEvent
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[uuid.UUID]map[int]chan domain.EntityEvent),
	}
}

func (b *MemoryBus) Publish(_ context.Context, ev domain.EntityEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.EntityID] {
		select {
		case ch <- ev:
		default:
			logger.Warn("Dropping event for slow subscriber",
				"entity_id", ev.EntityID, "new_status", ev.NewStatus, "new_version", ev.NewVersion)
		}
	}
}

func (b *MemoryBus) Subscribe(entityID uuid.UUID) (<-chan domain.EntityEvent, func()) {
	ch := make(chan domain.EntityEvent, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[entityID] == nil {
		b.subs[entityID] = make(map[int]chan domain.EntityEvent)
	}
	b.subs[entityID][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[entityID]; ok {
			if _, ok := set[id]; ok {
				delete(set, id)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, entityID)
			}
		}
	}
	return ch, cancel
}
