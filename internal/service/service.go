package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/security"
)

// OrderService exposes one operation per order lifecycle transition. Every
// transition takes the acting user and the entity version the caller last
// observed; a lost optimistic-concurrency race surfaces as
// domain.ErrStaleVersion and the caller re-reads and retries.
type OrderService interface {
	Create(ctx context.Context, o *domain.Order) (*domain.Order, error)
	Get(ctx context.Context, actor security.Actor, id uuid.UUID) (*domain.Order, error)
	ListProposals(ctx context.Context, actor security.Actor, id uuid.UUID) ([]domain.WindowProposal, error)

	ProposeWindow(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, start, end time.Time) (*domain.Order, error)
	AcceptWindow(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error)
	RejectWindow(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, reason string) (*domain.Order, error)
	CounterPropose(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, start, end time.Time) (*domain.Order, error)

	ConfirmOrder(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error)
	StartTransit(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, proofRef string) (*domain.Order, error)
	ConfirmPickup(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, proofRef string) (*domain.Order, error)
	CompleteOrder(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error)

	Cancel(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, reason string) (*domain.Order, error)
	OpenDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, issueType, description string, photoRefs []string) (*domain.Order, error)
	ResolveDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, target domain.OrderStatus, resolution string) (*domain.Order, error)
}

// RentalService exposes the rental-booking lifecycle, including the
// confirmation-window sweep invoked from the cron scheduler.
type RentalService interface {
	Create(ctx context.Context, b *domain.RentalBooking) (*domain.RentalBooking, error)
	Get(ctx context.Context, actor security.Actor, id uuid.UUID) (*domain.RentalBooking, error)

	ConfirmBooking(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.RentalBooking, error)
	ConfirmHandover(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, photoRefs []string, notes string) (*domain.RentalBooking, error)
	ConfirmReturn(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, photoRefs []string, notes string) (*domain.RentalBooking, error)
	UpdateFees(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, fees domain.RentalFees) (*domain.RentalBooking, error)

	Cancel(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, reason string) (*domain.RentalBooking, error)
	OpenDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, issueType, description string, photoRefs []string) (*domain.RentalBooking, error)
	ResolveDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, target domain.RentalStatus, resolution string) (*domain.RentalBooking, error)

	// SweepExpiredConfirmations flags overdue confirmation deadlines and
	// drives expired return windows into OVERDUE. Idempotent across runs.
	SweepExpiredConfirmations(ctx context.Context, now time.Time) (flagged, overdue int, err error)
}

// roleFor resolves the acting user to a role on a specific entity. A user
// who is neither party (and not admin) has no business touching it.
func roleFor(actor security.Actor, buyerID, supplierID uuid.UUID) (domain.Role, error) {
	switch {
	case actor.Admin:
		return domain.RoleAdmin, nil
	case actor.UserID == buyerID:
		return domain.RoleBuyer, nil
	case actor.UserID == supplierID:
		return domain.RoleSupplier, nil
	}
	return "", fmt.Errorf("%w: user is not a party to this entity", domain.ErrRoleNotPermitted)
}

// checkVersion rejects requests carrying an outdated observed version
// before any work is done; the store-level compare-and-swap still protects
// against races that happen after this check.
func checkVersion(observed, current int32) error {
	if observed != current {
		return fmt.Errorf("%w: observed %d, current %d", domain.ErrStaleVersion, observed, current)
	}
	return nil
}
