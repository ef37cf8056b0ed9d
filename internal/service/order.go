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

type orderService struct {
	orderRepo repository.OrderRepository
	bus       events.Bus
}

func NewOrderService(orderRepo repository.OrderRepository, bus events.Bus) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		bus:       bus,
	}
}

// publish emits the invalidation hint for a committed mutation. Publication
// happens strictly after the commit and never affects the caller's result.
func (s *orderService) publish(ctx context.Context, o *domain.Order) {
	s.bus.Publish(ctx, domain.EntityEvent{
		EntityID:   o.ID,
		EntityKind: domain.EntityKindOrder,
		NewStatus:  string(o.Status),
		NewVersion: o.Version,
	})
}

func (s *orderService) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	if o.BuyerID == uuid.Nil || o.SupplierID == uuid.Nil {
		return nil, fmt.Errorf("%w: order requires buyer and supplier", domain.ErrInvalidTransition)
	}
	if len(o.LineItems) == 0 {
		return nil, fmt.Errorf("%w: order requires at least one line item", domain.ErrInvalidTransition)
	}
	if o.FulfillmentMode != domain.FulfillmentPickup && o.FulfillmentMode != domain.FulfillmentDelivery {
		return nil, fmt.Errorf("%w: unknown fulfillment mode %q", domain.ErrInvalidTransition, o.FulfillmentMode)
	}
	o.Status = domain.OrderStatusPending
	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.publish(ctx, o)
	return o, nil
}

func (s *orderService) Get(ctx context.Context, actor security.Actor, id uuid.UUID) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := roleFor(actor, o.BuyerID, o.SupplierID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) ListProposals(ctx context.Context, actor security.Actor, id uuid.UUID) ([]domain.WindowProposal, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := roleFor(actor, o.BuyerID, o.SupplierID); err != nil {
		return nil, err
	}
	return s.orderRepo.ListProposals(ctx, id)
}

func (s *orderService) ProposeWindow(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, start, end time.Time) (*domain.Order, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: proposed window end must follow start", domain.ErrInvalidTransition)
	}
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(lifecycle.ActionProposeWindow, role); err != nil {
		return nil, err
	}
	next, err := lifecycle.NextOrderStatus(lifecycle.ActionProposeWindow, o.Status)
	if err != nil {
		return nil, err
	}

	// Last proposal wins: any pending proposal is discarded, never queued.
	var supersede *uuid.UUID
	if o.Proposal != nil && o.Proposal.Status == domain.ProposalStatusPending {
		supersede = &o.Proposal.ID
	}
	p := &domain.WindowProposal{
		OrderID:       o.ID,
		ProposedStart: start,
		ProposedEnd:   end,
		ProposerRole:  role,
		Status:        domain.ProposalStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	o.Status = next
	if err := s.orderRepo.CommitProposal(ctx, o, version, supersede, p); err != nil {
		return nil, err
	}
	o.Proposal = p
	s.publish(ctx, o)
	return o, nil
}

func (s *orderService) AcceptWindow(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeProposalResponse(lifecycle.ActionAcceptWindow, role, o.Proposal); err != nil {
		return nil, err
	}
	next, err := lifecycle.NextOrderStatus(lifecycle.ActionAcceptWindow, o.Status)
	if err != nil {
		return nil, err
	}

	start, end := o.Proposal.ProposedStart, o.Proposal.ProposedEnd
	o.Status = next
	o.PromisedStart = &start
	o.PromisedEnd = &end
	if err := s.orderRepo.CommitProposalDecision(ctx, o, version, o.Proposal.ID, domain.ProposalStatusAccepted); err != nil {
		return nil, err
	}
	o.Proposal = nil
	s.publish(ctx, o)
	return o, nil
}

func (s *orderService) RejectWindow(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, reason string) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeProposalResponse(lifecycle.ActionRejectWindow, role, o.Proposal); err != nil {
		return nil, err
	}
	next, err := lifecycle.NextOrderStatus(lifecycle.ActionRejectWindow, o.Status)
	if err != nil {
		return nil, err
	}

	o.Status = next
	if err := s.orderRepo.CommitProposalDecision(ctx, o, version, o.Proposal.ID, domain.ProposalStatusRejected); err != nil {
		return nil, err
	}
	logger.Info("Window proposal rejected", "order_id", o.ID, "by", role, "reason", reason)
	o.Proposal = nil
	s.publish(ctx, o)
	return o, nil
}

// CounterPropose is reject-then-propose as one atomic commit, so no reader
// ever observes the order with neither a promised nor a pending window
// while negotiation is still going.
func (s *orderService) CounterPropose(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, start, end time.Time) (*domain.Order, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: proposed window end must follow start", domain.ErrInvalidTransition)
	}
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeProposalResponse(lifecycle.ActionCounterPropose, role, o.Proposal); err != nil {
		return nil, err
	}
	next, err := lifecycle.NextOrderStatus(lifecycle.ActionCounterPropose, o.Status)
	if err != nil {
		return nil, err
	}

	supersede := o.Proposal.ID
	p := &domain.WindowProposal{
		OrderID:       o.ID,
		ProposedStart: start,
		ProposedEnd:   end,
		ProposerRole:  role,
		Status:        domain.ProposalStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	o.Status = next
	if err := s.orderRepo.CommitProposal(ctx, o, version, &supersede, p); err != nil {
		return nil, err
	}
	o.Proposal = p
	s.publish(ctx, o)
	return o, nil
}

// transition runs the shared read-guard-compute-commit path for plain
// status moves that carry no child writes.
func (s *orderService) transition(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, action lifecycle.Action, mutate func(o *domain.Order)) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(action, role); err != nil {
		return nil, err
	}
	next, err := lifecycle.NextOrderStatus(action, o.Status)
	if err != nil {
		return nil, err
	}

	o.Status = next
	if mutate != nil {
		mutate(o)
	}
	if err := s.orderRepo.CommitStatus(ctx, o, version); err != nil {
		return nil, err
	}
	s.publish(ctx, o)
	return o, nil
}

func (s *orderService) ConfirmOrder(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error) {
	return s.transition(ctx, actor, id, version, lifecycle.ActionConfirmOrder, func(o *domain.Order) {
		now := time.Now().UTC()
		o.ConfirmedOn = &now
	})
}

func (s *orderService) StartTransit(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error) {
	return s.transition(ctx, actor, id, version, lifecycle.ActionStartTransit, nil)
}

func (s *orderService) ConfirmDelivery(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, proofRef string) (*domain.Order, error) {
	return s.transition(ctx, actor, id, version, lifecycle.ActionConfirmDelivery, func(o *domain.Order) {
		now := time.Now().UTC()
		o.DeliveredOn = &now
		if proofRef != "" {
			o.DeliveryProofRef = proofRef
		}
	})
}

// ConfirmPickup is the pickup-mode spelling of ConfirmDelivery; the
// underlying state move is identical.
func (s *orderService) ConfirmPickup(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, proofRef string) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.FulfillmentMode != domain.FulfillmentPickup {
		return nil, fmt.Errorf("%w: confirm-pickup applies to pickup orders only", domain.ErrInvalidTransition)
	}
	return s.ConfirmDelivery(ctx, actor, id, version, proofRef)
}

func (s *orderService) CompleteOrder(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error) {
	return s.transition(ctx, actor, id, version, lifecycle.ActionCompleteOrder, nil)
}

func (s *orderService) Cancel(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, reason string) (*domain.Order, error) {
	o, err := s.transition(ctx, actor, id, version, lifecycle.ActionCancel, nil)
	if err != nil {
		return nil, err
	}
	logger.Info("Order cancelled", "order_id", id, "reason", reason)
	return o, nil
}

func (s *orderService) OpenDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, issueType, description string, photoRefs []string) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(lifecycle.ActionOpenDispute, role); err != nil {
		return nil, err
	}
	next, err := lifecycle.NextOrderStatus(lifecycle.ActionOpenDispute, o.Status)
	if err != nil {
		return nil, err
	}

	d := &domain.Dispute{
		EntityID:    o.ID,
		IssueType:   issueType,
		Description: description,
		PhotoRefs:   photoRefs,
		OpenedBy:    role,
		OpenedAt:    time.Now().UTC(),
	}
	o.PriorStatus = o.Status
	o.Status = next
	if err := s.orderRepo.CommitDispute(ctx, o, version, d); err != nil {
		return nil, err
	}
	o.Dispute = d
	s.publish(ctx, o)
	return o, nil
}

func (s *orderService) ResolveDispute(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, target domain.OrderStatus, resolution string) (*domain.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, o.Version); err != nil {
		return nil, err
	}
	role, err := roleFor(actor, o.BuyerID, o.SupplierID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(lifecycle.ActionResolveDispute, role); err != nil {
		return nil, err
	}
	if o.Status != domain.OrderStatusDisputed || !o.Dispute.Open() {
		return nil, fmt.Errorf("%w: no open dispute to resolve", domain.ErrInvalidTransition)
	}
	if err := lifecycle.ValidOrderResolution(o.PriorStatus, target); err != nil {
		return nil, err
	}

	disputeID := o.Dispute.ID
	o.Status = target
	o.PriorStatus = ""
	now := time.Now().UTC()
	if err := s.orderRepo.CommitDisputeResolution(ctx, o, version, disputeID, resolution, now); err != nil {
		return nil, err
	}
	o.Dispute = nil
	s.publish(ctx, o)
	return o, nil
}
