package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dispute records an issue raised by either party against an order or
// booking. While a dispute is open every lifecycle transition except
// cancellation is blocked. Resolution is an administrative action; a
// resolved-then-reopened dispute is a new record.
type Dispute struct {
	ID          uuid.UUID  `json:"id"`
	EntityID    uuid.UUID  `json:"entity_id"`
	IssueType   string     `json:"issue_type"`
	Description string     `json:"description"`
	PhotoRefs   []string   `json:"photo_refs,omitempty"`
	OpenedBy    Role       `json:"opened_by"`
	OpenedAt    time.Time  `json:"opened_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
}

// Open reports whether the dispute still gates lifecycle progress.
func (d *Dispute) Open() bool {
	return d != nil && d.ResolvedAt == nil
}
