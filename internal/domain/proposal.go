package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "PENDING"
	ProposalStatusAccepted ProposalStatus = "ACCEPTED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// WindowProposal is one offer of a delivery/pickup window during order
// scheduling negotiation. At most one proposal per order is PENDING at a
// time: a fresh proposal from either side replaces the one on the table.
// Proposals are persisted append-only; a superseded or decided proposal is
// never edited again.
type WindowProposal struct {
	ID            uuid.UUID      `json:"id"`
	OrderID       uuid.UUID      `json:"order_id"`
	ProposedStart time.Time      `json:"proposed_start"`
	ProposedEnd   time.Time      `json:"proposed_end"`
	ProposerRole  Role           `json:"proposer_role"`
	Status        ProposalStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}
