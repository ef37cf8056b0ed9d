package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/security"
	"buildmarket-engine/internal/service"
)

// RentalHandler exposes the rental-booking lifecycle over HTTP.
type RentalHandler struct {
	rentals service.RentalService
}

func NewRentalHandler(rentals service.RentalService) *RentalHandler {
	return &RentalHandler{rentals: rentals}
}

type createRentalRequest struct {
	BuyerID      uuid.UUID `json:"buyer_id"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	ToolRef      string    `json:"tool_ref"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	DayRateCents int32     `json:"day_rate_cents"`
	TotalCents   int32     `json:"total_cents"`
	DepositCents int32     `json:"deposit_cents"`
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRentalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.rentals.Create(r.Context(), &domain.RentalBooking{
		BuyerID:      req.BuyerID,
		SupplierID:   req.SupplierID,
		ToolRef:      req.ToolRef,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		DayRateCents: req.DayRateCents,
		TotalCents:   req.TotalCents,
		DepositCents: req.DepositCents,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	b, err := h.rentals.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *RentalHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req versionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.rentals.ConfirmBooking(r.Context(), actorFrom(r), id, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type confirmationRequest struct {
	Version   int32    `json:"version"`
	PhotoRefs []string `json:"photo_refs"`
	Notes     string   `json:"notes"`
}

// confirm handles the two photo-backed confirmations, which differ only in
// the service operation they invoke.
func (h *RentalHandler) confirm(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor security.Actor, id uuid.UUID, version int32, photoRefs []string, notes string) (*domain.RentalBooking, error)) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req confirmationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := op(r.Context(), actorFrom(r), id, req.Version, req.PhotoRefs, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *RentalHandler) ConfirmHandover(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.rentals.ConfirmHandover)
}

func (h *RentalHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.rentals.ConfirmReturn)
}

type feesRequest struct {
	Version            int32 `json:"version"`
	DeliveryFeeCents   int32 `json:"delivery_fee_cents"`
	LateReturnFeeCents int32 `json:"late_return_fee_cents"`
	DamageFeeCents     int32 `json:"damage_fee_cents"`
}

func (h *RentalHandler) UpdateFees(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req feesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.rentals.UpdateFees(r.Context(), actorFrom(r), id, req.Version, domain.RentalFees{
		DeliveryFeeCents:   req.DeliveryFeeCents,
		LateReturnFeeCents: req.LateReturnFeeCents,
		DamageFeeCents:     req.DamageFeeCents,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.rentals.Cancel(r.Context(), actorFrom(r), id, req.Version, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *RentalHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req disputeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.rentals.OpenDispute(r.Context(), actorFrom(r), id, req.Version, req.IssueType, req.Description, req.PhotoRefs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *RentalHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.rentals.ResolveDispute(r.Context(), actorFrom(r), id, req.Version, domain.RentalStatus(req.ResultingStatus), req.Resolution)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
