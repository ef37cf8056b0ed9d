package domain

import (
	"time"

	"github.com/google/uuid"
)

type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "PENDING"
	RentalStatusConfirmed RentalStatus = "CONFIRMED"
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusOverdue   RentalStatus = "OVERDUE"
	RentalStatusCompleted RentalStatus = "COMPLETED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
	RentalStatusDisputed  RentalStatus = "DISPUTED"
)

// RentalFees are write-once surcharges recorded against a booking. The
// engine never computes them; it only stores what the surrounding system
// supplies, and rejects any decrease of an already-set fee.
type RentalFees struct {
	DeliveryFeeCents   int32 `json:"delivery_fee_cents"`
	LateReturnFeeCents int32 `json:"late_return_fee_cents"`
	DamageFeeCents     int32 `json:"damage_fee_cents"`
}

// RentalBooking is an agreement to lend a tool for a date range.
// Handover and Return are nil until the corresponding confirmation record
// is created (at booking confirmation and at handover, respectively).
type RentalBooking struct {
	ID           uuid.UUID           `json:"id"`
	BuyerID      uuid.UUID           `json:"buyer_id"`
	SupplierID   uuid.UUID           `json:"supplier_id"`
	ToolRef      string              `json:"tool_ref"`
	StartDate    time.Time           `json:"start_date"`
	EndDate      time.Time           `json:"end_date"`
	DayRateCents int32               `json:"day_rate_cents"`
	TotalCents   int32               `json:"total_cents"`
	DepositCents int32               `json:"deposit_cents"`
	Fees         RentalFees          `json:"fees"`
	Status       RentalStatus        `json:"status"`
	PriorStatus  RentalStatus        `json:"prior_status,omitempty"`
	Handover     *ConfirmationRecord `json:"handover,omitempty"`
	Return       *ConfirmationRecord `json:"return,omitempty"`
	Dispute      *Dispute            `json:"dispute,omitempty"`
	CreatedOn    time.Time           `json:"created_on"`
	Version      int32               `json:"version"`
}

func (s RentalStatus) Terminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}
