package domain

import "github.com/google/uuid"

type EntityKind string

const (
	EntityKindOrder  EntityKind = "ORDER"
	EntityKindRental EntityKind = "RENTAL"
)

// EntityEvent is broadcast once per committed mutation. It is an
// invalidation hint, not an authoritative snapshot: subscribers re-fetch
// current state and must tolerate duplicate or out-of-order delivery.
type EntityEvent struct {
	EntityID   uuid.UUID  `json:"entity_id"`
	EntityKind EntityKind `json:"entity_kind"`
	NewStatus  string     `json:"new_status"`
	NewVersion int32      `json:"new_version"`
}
