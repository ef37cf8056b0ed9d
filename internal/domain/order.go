package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPendingSchedule OrderStatus = "PENDING_SCHEDULE"
	OrderStatusScheduled       OrderStatus = "SCHEDULED"
	OrderStatusConfirmed       OrderStatus = "CONFIRMED"
	OrderStatusInTransit       OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusDisputed        OrderStatus = "DISPUTED"
)

type FulfillmentMode string

const (
	FulfillmentPickup   FulfillmentMode = "PICKUP"
	FulfillmentDelivery FulfillmentMode = "DELIVERY"
)

// LineItem is a single order position. Line items are immutable once the
// order is created; the engine never recomputes prices.
type LineItem struct {
	Description    string `json:"description"`
	Quantity       int32  `json:"quantity"`
	Unit           string `json:"unit"`
	UnitPriceCents int32  `json:"unit_price_cents"`
}

// Order is an agreement to deliver materials from a supplier to a buyer.
// The promised window is set only when a scheduling proposal has been
// accepted; Proposal holds the single currently pending proposal, if any.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	SupplierID      uuid.UUID       `json:"supplier_id"`
	LineItems       []LineItem      `json:"line_items"`
	FulfillmentMode FulfillmentMode `json:"fulfillment_mode"`
	PromisedStart   *time.Time      `json:"promised_start,omitempty"`
	PromisedEnd     *time.Time      `json:"promised_end,omitempty"`
	Proposal        *WindowProposal `json:"proposal,omitempty"`
	Status          OrderStatus     `json:"status"`
	// PriorStatus remembers the state an order was in when a dispute froze
	// it, so resolution can send it back where it came from.
	PriorStatus      OrderStatus `json:"prior_status,omitempty"`
	DeliveryProofRef string      `json:"delivery_proof_ref,omitempty"`
	Dispute          *Dispute    `json:"dispute,omitempty"`
	CreatedOn        time.Time   `json:"created_on"`
	DeliveredOn      *time.Time  `json:"delivered_on,omitempty"`
	ConfirmedOn      *time.Time  `json:"confirmed_on,omitempty"`
	Version          int32       `json:"version"`
}

// Terminal reports whether no further lifecycle transitions are possible.
// DISPUTED is frozen, not terminal: cancel and resolve still apply.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// DisplayStatus relabels transit states for pickup-mode orders. Fulfillment
// mode is a view concern, not a distinct state.
func (o *Order) DisplayStatus() string {
	if o.FulfillmentMode == FulfillmentPickup {
		switch o.Status {
		case OrderStatusInTransit:
			return "READY_FOR_PICKUP"
		case OrderStatusDelivered:
			return "PICKED_UP"
		}
	}
	return string(o.Status)
}
