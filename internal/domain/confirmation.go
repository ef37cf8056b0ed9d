package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConfirmationKind string

const (
	ConfirmationHandover ConfirmationKind = "HANDOVER"
	ConfirmationReturn   ConfirmationKind = "RETURN"
)

// ConfirmationRecord tracks a time-boxed physical handover or return.
// The deadline is computed once, at record creation, from the booking's
// schedule plus the configured confirmation window. ConfirmedAt is
// immutable once set. ExpiryFlagged marks that the deadline sweep has
// already signaled this record, so repeated sweeps stay idempotent even
// under clock skew.
type ConfirmationRecord struct {
	ID             uuid.UUID        `json:"id"`
	RentalID       uuid.UUID        `json:"rental_id"`
	Kind           ConfirmationKind `json:"kind"`
	ScheduledAt    time.Time        `json:"scheduled_at"`
	Deadline       time.Time        `json:"deadline"`
	ConfirmedAt    *time.Time       `json:"confirmed_at,omitempty"`
	PhotoRefs      []string         `json:"photo_refs,omitempty"`
	ConditionNotes string           `json:"condition_notes,omitempty"`
	ExpiryFlagged  bool             `json:"expiry_flagged"`
	CreatedOn      time.Time        `json:"created_on"`
}

// Confirmed reports whether the physical exchange has been confirmed.
func (c *ConfirmationRecord) Confirmed() bool {
	return c != nil && c.ConfirmedAt != nil
}
