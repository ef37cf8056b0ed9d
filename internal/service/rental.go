package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/events"
	"buildmarket-engine/internal/lifecycle"
	"buildmarket-engine/internal/logger"
	"buildmarket-engine/internal/repository"
	"buildmarket-engine/internal/security"
)

// WindowPolicy carries the confirmation-window durations from config into
// the engine. The engine itself holds no literal deadlines.
type WindowPolicy struct {
	HandoverConfirm time.Duration
	ReturnConfirm   time.Duration
}

type rentalService struct {
	rentalRepo repository.RentalRepository
	bus        events.Bus
	policy     WindowPolicy
}

func NewRentalService(rentalRepo repository.RentalRepository, bus events.Bus, policy WindowPolicy) RentalService {
	return &rentalService{
		rentalRepo: rentalRepo,
		bus:        bus,
		policy:     policy,
	}
}

func (s *rentalService) publish(ctx context.Context, b *domain.RentalBooking) {
	s.bus.Publish(ctx, domain.EntityEvent{
		EntityID:   b.ID,
		EntityKind: domain.EntityKindRental,
		NewStatus:  string(b.Status),
		NewVersion: b.Version,
	})
}

func (s *rentalService) Create(ctx context.Context, b *domain.RentalBooking) (*domain.RentalBooking, error) {
	if b.BuyerID == uuid.Nil || b.SupplierID == uuid.Nil {
		return nil, fmt.Errorf("%w: booking requires buyer and supplier", domain.ErrInvalidTransition)
	}
	if b.ToolRef == "" {
		return nil, fmt.Errorf("%w: booking requires a tool reference", domain.ErrInvalidTransition)
	}
	if !b.EndDate.After(b.StartDate) {
		return nil, fmt.Errorf("%w: booking end date must follow start date", domain.ErrInvalidTransition)
	}
	b.Status = domain.RentalStatusPending
	if err := s.rentalRepo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	return b, nil
}

func (s *rentalService) Get(ctx context.Context, actor security.Actor, id uuid.UUID) (*domain.RentalBooking, error) {
	b, err := s.rentalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := roleFor(actor, b.BuyerID, b.SupplierID); err != nil {
		return nil, err
	}
	return b, nil
}

// load runs the shared read-check-guard prefix of every transition.
func (s *rentalService) load(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, action lifecycle.Action) (*domain.RentalBooking, domain.Role, error) {
	b, err := s.rentalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := checkVersion(version, b.Version); err != nil {
		return nil, "", err
	}
	role, err := roleFor(actor, b.BuyerID, b.SupplierID)
	if err != nil {
		return nil, "", err
	}
	if err := lifecycle.Authorize(action, role); err != nil {
		return nil, "", err
	}
	return b, role, nil
}

// ConfirmBooking moves the booking to CONFIRMED and opens the handover
// confirmation window against the rental start date.
func (s *rentalService) ConfirmBooking(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.RentalBooking, error) {
	b, _, err := s.load(ctx, actor, id, version, lifecycle.ActionConfirmBooking)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.NextRentalStatus(lifecycle.ActionConfirmBooking, b.Status)
	if err != nil {
		return nil, err
	}

	handover := &domain.ConfirmationRecord{
		RentalID:    b.ID,
		Kind:        domain.ConfirmationHandover,
		ScheduledAt: b.StartDate,
		Deadline:    b.StartDate.Add(s.policy.HandoverConfirm),
		CreatedOn:   time.Now().UTC(),
	}
	b.Status = next
	if err := s.rentalRepo.CommitConfirmation(ctx, b, version, nil, handover); err != nil {
		return nil, err
	}
	b.Handover = handover
	s.publish(ctx, b)
	return b, nil
}

// ConfirmHandover stamps the handover record with photographic evidence,
// activates the rental, and opens the return confirmation window against
// the rental end date.
func (s *rentalService) ConfirmHandover(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, photoRefs []string, notes string) (*domain.RentalBooking, error) {
	if len(photoRefs) == 0 {
		return nil, fmt.Errorf("%w: handover confirmation needs at least one photo", domain.ErrIncompleteEvidence)
	}
	b, _, err := s.load(ctx, actor, id, version, lifecycle.ActionConfirmHandover)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.NextRentalStatus(lifecycle.ActionConfirmHandover, b.Status)
	if err != nil {
		return nil, err
	}
	if b.Handover == nil {
		return nil, fmt.Errorf("%w: no handover window open", domain.ErrInvalidTransition)
	}
	if b.Handover.ExpiryFlagged {
		return nil, fmt.Errorf("%w: handover window expired at %s", domain.ErrDeadlinePassed, b.Handover.Deadline.Format(time.RFC3339))
	}

	now := time.Now().UTC()
	b.Handover.ConfirmedAt = &now
	b.Handover.PhotoRefs = photoRefs
	b.Handover.ConditionNotes = notes

	ret := &domain.ConfirmationRecord{
		RentalID:    b.ID,
		Kind:        domain.ConfirmationReturn,
		ScheduledAt: b.EndDate,
		Deadline:    b.EndDate.Add(s.policy.ReturnConfirm),
		CreatedOn:   now,
	}
	b.Status = next
	if err := s.rentalRepo.CommitConfirmation(ctx, b, version, b.Handover, ret); err != nil {
		return nil, err
	}
	b.Return = ret
	s.publish(ctx, b)
	return b, nil
}

// ConfirmReturn completes the booking. A return after the deadline (booking
// already OVERDUE) still completes; lateness is billed externally through
// the late return fee.
func (s *rentalService) ConfirmReturn(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, photoRefs []string, notes string) (*domain.RentalBooking, error) {
	if len(photoRefs) == 0 {
		return nil, fmt.Errorf("%w: return confirmation needs at least one photo", domain.ErrIncompleteEvidence)
	}
	b, _, err := s.load(ctx, actor, id, version, lifecycle.ActionConfirmReturn)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.NextRentalStatus(lifecycle.ActionConfirmReturn, b.Status)
	if err != nil {
		return nil, err
	}
	if b.Return == nil {
		return nil, fmt.Errorf("%w: no return window open", domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	b.Return.ConfirmedAt = &now
	b.Return.PhotoRefs = photoRefs
	b.Return.ConditionNotes = notes

	b.Status = next
	if err := s.rentalRepo.CommitConfirmation(ctx, b, version, b.Return, nil); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	return b, nil
}

// UpdateFees records externally computed surcharges. Fees only ever grow:
// lowering an already-recorded fee is rejected.
func (s *rentalService) UpdateFees(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, fees domain.RentalFees) (*domain.RentalBooking, error) {
	b, _, err := s.load(ctx, actor, id, version, lifecycle.ActionUpdateFees)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.RentalStatusDisputed {
		return nil, fmt.Errorf("%w: fees blocked while disputed", domain.ErrEntityFrozen)
	}
	if b.Status == domain.RentalStatusCancelled {
		return nil, fmt.Errorf("%w: booking is cancelled", domain.ErrInvalidTransition)
	}
	if fees.DeliveryFeeCents < b.Fees.DeliveryFeeCents ||
		fees.LateReturnFeeCents < b.Fees.LateReturnFeeCents ||
		fees.DamageFeeCents < b.Fees.DamageFeeCents {
		return nil, fmt.Errorf("%w: fees are never decreased", domain.ErrInvalidTransition)
	}

	b.Fees = fees
	if err := s.rentalRepo.CommitFees(ctx, b, version); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	return b, nil
}

func (s *rentalService) Cancel(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, reason string) (*domain.RentalBooking, error) {
	b, role, err := s.load(ctx, actor, id, version, lifecycle.ActionCancel)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.NextRentalStatus(lifecycle.ActionCancel, b.Status)
	if err != nil {
		return nil, err
	}

	b.Status = next
	if err := s.rentalRepo.CommitStatus(ctx, b, version); err != nil {
		return nil, err
	}
	logger.Info("Rental booking cancelled", "rental_id", b.ID, "by", role, "reason", reason)
	s.publish(ctx, b)
	return b, nil
}

func (s *rentalService) OpenDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, issueType, description string, photoRefs []string) (*domain.RentalBooking, error) {
	b, role, err := s.load(ctx, actor, id, version, lifecycle.ActionOpenDispute)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.NextRentalStatus(lifecycle.ActionOpenDispute, b.Status)
	if err != nil {
		return nil, err
	}

	d := &domain.Dispute{
		EntityID:    b.ID,
		IssueType:   issueType,
		Description: description,
		PhotoRefs:   photoRefs,
		OpenedBy:    role,
		OpenedAt:    time.Now().UTC(),
	}
	b.PriorStatus = b.Status
	b.Status = next
	if err := s.rentalRepo.CommitDispute(ctx, b, version, d); err != nil {
		return nil, err
	}
	b.Dispute = d
	s.publish(ctx, b)
	return b, nil
}

func (s *rentalService) ResolveDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, target domain.RentalStatus, resolution string) (*domain.RentalBooking, error) {
	b, _, err := s.load(ctx, actor, id, version, lifecycle.ActionResolveDispute)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.RentalStatusDisputed || !b.Dispute.Open() {
		return nil, fmt.Errorf("%w: no open dispute to resolve", domain.ErrInvalidTransition)
	}
	if err := lifecycle.ValidRentalResolution(b.PriorStatus, target); err != nil {
		return nil, err
	}

	disputeID := b.Dispute.ID
	b.Status = target
	b.PriorStatus = ""
	now := time.Now().UTC()
	if err := s.rentalRepo.CommitDisputeResolution(ctx, b, version, disputeID, resolution, now); err != nil {
		return nil, err
	}
	b.Dispute = nil
	s.publish(ctx, b)
	return b, nil
}
