package lifecycle

import (
	"fmt"

	"buildmarket-engine/internal/domain"
)

// Action names every lifecycle transition the engine exposes. The wire
// names double as API path segments.
type Action string

const (
	ActionProposeWindow   Action = "propose-window"
	ActionAcceptWindow    Action = "accept-window"
	ActionRejectWindow    Action = "reject-window"
	ActionCounterPropose  Action = "counter-propose"
	ActionConfirmOrder    Action = "confirm-order"
	ActionStartTransit    Action = "start-transit"
	ActionConfirmDelivery Action = "confirm-delivery"
	ActionCompleteOrder   Action = "complete-order"

	ActionConfirmBooking  Action = "confirm-booking"
	ActionConfirmHandover Action = "confirm-handover"
	ActionConfirmReturn   Action = "confirm-return"
	ActionMarkOverdue     Action = "mark-overdue"
	ActionUpdateFees      Action = "update-fees"

	ActionCancel         Action = "cancel"
	ActionOpenDispute    Action = "dispute"
	ActionResolveDispute Action = "resolve-dispute"
)

// orderEdges is the authoritative transition table for Order.status.
// Cancel and dispute are handled separately because they apply from every
// non-terminal state.
var orderEdges = map[Action]map[domain.OrderStatus]domain.OrderStatus{
	ActionProposeWindow: {
		domain.OrderStatusPending:         domain.OrderStatusPendingSchedule,
		domain.OrderStatusPendingSchedule: domain.OrderStatusPendingSchedule,
	},
	ActionAcceptWindow: {
		domain.OrderStatusPendingSchedule: domain.OrderStatusScheduled,
	},
	ActionRejectWindow: {
		domain.OrderStatusPendingSchedule: domain.OrderStatusPendingSchedule,
	},
	ActionCounterPropose: {
		domain.OrderStatusPendingSchedule: domain.OrderStatusPendingSchedule,
	},
	ActionConfirmOrder: {
		domain.OrderStatusScheduled: domain.OrderStatusConfirmed,
	},
	ActionStartTransit: {
		domain.OrderStatusConfirmed: domain.OrderStatusInTransit,
	},
	ActionConfirmDelivery: {
		domain.OrderStatusInTransit: domain.OrderStatusDelivered,
	},
	ActionCompleteOrder: {
		domain.OrderStatusDelivered: domain.OrderStatusCompleted,
	},
}

// rentalEdges is the authoritative transition table for RentalBooking.status.
// A late return still completes: confirm-return is valid from OVERDUE.
var rentalEdges = map[Action]map[domain.RentalStatus]domain.RentalStatus{
	ActionConfirmBooking: {
		domain.RentalStatusPending: domain.RentalStatusConfirmed,
	},
	ActionConfirmHandover: {
		domain.RentalStatusConfirmed: domain.RentalStatusActive,
	},
	ActionConfirmReturn: {
		domain.RentalStatusActive:  domain.RentalStatusCompleted,
		domain.RentalStatusOverdue: domain.RentalStatusCompleted,
	},
	ActionMarkOverdue: {
		domain.RentalStatusActive: domain.RentalStatusOverdue,
	},
}

// NextOrderStatus computes the resulting order status for an action, or
// fails closed when the current state is not a declared source for it.
func NextOrderStatus(action Action, from domain.OrderStatus) (domain.OrderStatus, error) {
	if from.Terminal() {
		return "", fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, from)
	}
	if from == domain.OrderStatusDisputed {
		if action == ActionCancel {
			return domain.OrderStatusCancelled, nil
		}
		return "", fmt.Errorf("%w: %s blocked while disputed", domain.ErrEntityFrozen, action)
	}
	switch action {
	case ActionCancel:
		return domain.OrderStatusCancelled, nil
	case ActionOpenDispute:
		return domain.OrderStatusDisputed, nil
	}
	to, ok := orderEdges[action][from]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, action, from)
	}
	return to, nil
}

// NextRentalStatus computes the resulting booking status for an action.
func NextRentalStatus(action Action, from domain.RentalStatus) (domain.RentalStatus, error) {
	if from.Terminal() {
		return "", fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, from)
	}
	if from == domain.RentalStatusDisputed {
		if action == ActionCancel {
			return domain.RentalStatusCancelled, nil
		}
		return "", fmt.Errorf("%w: %s blocked while disputed", domain.ErrEntityFrozen, action)
	}
	switch action {
	case ActionCancel:
		return domain.RentalStatusCancelled, nil
	case ActionOpenDispute:
		return domain.RentalStatusDisputed, nil
	}
	to, ok := rentalEdges[action][from]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, action, from)
	}
	return to, nil
}

// ValidOrderResolution checks the resulting state an administrator picks
// when resolving a dispute: either back to the state the order was frozen
// in, or straight to a terminal state.
func ValidOrderResolution(prior, target domain.OrderStatus) error {
	if target == prior || target == domain.OrderStatusCompleted || target == domain.OrderStatusCancelled {
		return nil
	}
	return fmt.Errorf("%w: cannot resolve dispute to %s (frozen in %s)", domain.ErrInvalidTransition, target, prior)
}

// ValidRentalResolution is the booking counterpart of ValidOrderResolution.
func ValidRentalResolution(prior, target domain.RentalStatus) error {
	if target == prior || target == domain.RentalStatusCompleted || target == domain.RentalStatusCancelled {
		return nil
	}
	return fmt.Errorf("%w: cannot resolve dispute to %s (frozen in %s)", domain.ErrInvalidTransition, target, prior)
}
