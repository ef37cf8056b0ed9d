package lifecycle

import (
	"fmt"

	"buildmarket-engine/internal/domain"
)

// allowedRoles declares which actor roles may invoke each action. An action
// missing from the map is internal (sweep-only) and never reachable through
// the guard.
var allowedRoles = map[Action][]domain.Role{
	ActionProposeWindow:   {domain.RoleBuyer, domain.RoleSupplier},
	ActionAcceptWindow:    {domain.RoleBuyer, domain.RoleSupplier},
	ActionRejectWindow:    {domain.RoleBuyer, domain.RoleSupplier},
	ActionCounterPropose:  {domain.RoleBuyer, domain.RoleSupplier},
	ActionConfirmOrder:    {domain.RoleSupplier},
	ActionStartTransit:    {domain.RoleSupplier},
	ActionConfirmDelivery: {domain.RoleBuyer},
	ActionCompleteOrder:   {domain.RoleBuyer},

	ActionConfirmBooking:  {domain.RoleSupplier},
	ActionConfirmHandover: {domain.RoleBuyer},
	ActionConfirmReturn:   {domain.RoleBuyer},
	ActionUpdateFees:      {domain.RoleSupplier, domain.RoleAdmin},

	ActionCancel:         {domain.RoleBuyer, domain.RoleSupplier, domain.RoleAdmin},
	ActionOpenDispute:    {domain.RoleBuyer, domain.RoleSupplier},
	ActionResolveDispute: {domain.RoleAdmin},
}

// Authorize checks that the acting role may invoke the action at all.
func Authorize(action Action, role domain.Role) error {
	for _, r := range allowedRoles[action] {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not %s", domain.ErrRoleNotPermitted, role, action)
}

// AuthorizeProposalResponse enforces negotiation symmetry: only the
// counterpart of the proposer may accept, reject, or counter the proposal
// on the table.
func AuthorizeProposalResponse(action Action, role domain.Role, proposal *domain.WindowProposal) error {
	if err := Authorize(action, role); err != nil {
		return err
	}
	if proposal == nil || proposal.Status != domain.ProposalStatusPending {
		return fmt.Errorf("%w: no pending proposal to %s", domain.ErrInvalidTransition, action)
	}
	if proposal.ProposerRole.Counterpart() != role {
		return fmt.Errorf("%w: %s cannot %s their own proposal", domain.ErrRoleNotPermitted, role, action)
	}
	return nil
}
