package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
)

// OrderRepository is the durable store for Order aggregates and their
// append-only children. Every Commit* method performs a compare-and-swap
// on the parent row: the write succeeds only if the stored version equals
// expected, and bumps the version by one. A lost race surfaces as
// domain.ErrStaleVersion; the caller re-reads and retries or gives up.
// Child writes and the parent CAS run in a single transaction.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// CommitStatus writes the mutable parent fields (status, promised
	// window, proof reference, timestamps) with a version bump.
	CommitStatus(ctx context.Context, o *domain.Order, expected int32) error

	// CommitProposal appends a new proposal, marking the superseded pending
	// one rejected when supersede is non-nil (last-proposal-wins).
	CommitProposal(ctx context.Context, o *domain.Order, expected int32, supersede *uuid.UUID, p *domain.WindowProposal) error

	// CommitProposalDecision finalizes a pending proposal to accepted or
	// rejected together with the parent commit. A decided proposal row is
	// never touched again.
	CommitProposalDecision(ctx context.Context, o *domain.Order, expected int32, proposalID uuid.UUID, decision domain.ProposalStatus) error

	CommitDispute(ctx context.Context, o *domain.Order, expected int32, d *domain.Dispute) error
	CommitDisputeResolution(ctx context.Context, o *domain.Order, expected int32, disputeID uuid.UUID, resolution string, at time.Time) error

	ListProposals(ctx context.Context, orderID uuid.UUID) ([]domain.WindowProposal, error)
}

// RentalRepository is the durable store for RentalBooking aggregates,
// confirmation records and disputes. Versioning semantics match
// OrderRepository.
type RentalRepository interface {
	Create(ctx context.Context, r *domain.RentalBooking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RentalBooking, error)

	CommitStatus(ctx context.Context, r *domain.RentalBooking, expected int32) error

	// CommitConfirmation stamps an existing record confirmed (confirmed
	// non-nil) and/or appends a freshly created record (created non-nil),
	// atomically with the parent commit. A stamped confirmed_at is final.
	CommitConfirmation(ctx context.Context, r *domain.RentalBooking, expected int32, confirmed, created *domain.ConfirmationRecord) error

	CommitFees(ctx context.Context, r *domain.RentalBooking, expected int32) error

	CommitDispute(ctx context.Context, r *domain.RentalBooking, expected int32, d *domain.Dispute) error
	CommitDisputeResolution(ctx context.Context, r *domain.RentalBooking, expected int32, disputeID uuid.UUID, resolution string, at time.Time) error

	// ListExpiredConfirmations returns unconfirmed, not-yet-flagged records
	// whose deadline lies before now. Used by the deadline sweep.
	ListExpiredConfirmations(ctx context.Context, now time.Time) ([]domain.ConfirmationRecord, error)

	// FlagExpiry marks a record as expiry-signaled. Returns false when the
	// record was already flagged or confirmed in the meantime, which makes
	// repeated sweeps idempotent.
	FlagExpiry(ctx context.Context, recordID uuid.UUID) (bool, error)
}
