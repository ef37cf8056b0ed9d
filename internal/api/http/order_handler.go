package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/security"
	"buildmarket-engine/internal/service"
)

// OrderHandler exposes the order lifecycle transitions over HTTP.
type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func entityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed entity id", Code: "BAD_REQUEST"})
		return uuid.Nil, false
	}
	return id, true
}

type createOrderRequest struct {
	BuyerID         uuid.UUID         `json:"buyer_id"`
	SupplierID      uuid.UUID         `json:"supplier_id"`
	LineItems       []domain.LineItem `json:"line_items"`
	FulfillmentMode string            `json:"fulfillment_mode"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.Create(r.Context(), &domain.Order{
		BuyerID:         req.BuyerID,
		SupplierID:      req.SupplierID,
		LineItems:       req.LineItems,
		FulfillmentMode: domain.FulfillmentMode(req.FulfillmentMode),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	proposals, err := h.orders.ListProposals(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

type windowRequest struct {
	Version int32     `json:"version"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

func (h *OrderHandler) ProposeWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req windowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.ProposeWindow(r.Context(), actorFrom(r), id, req.Version, req.Start, req.End)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CounterPropose(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req windowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.CounterPropose(r.Context(), actorFrom(r), id, req.Version, req.Start, req.End)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type versionRequest struct {
	Version int32 `json:"version"`
}

func (h *OrderHandler) AcceptWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req versionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.AcceptWindow(r.Context(), actorFrom(r), id, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type reasonRequest struct {
	Version int32  `json:"version"`
	Reason  string `json:"reason"`
}

func (h *OrderHandler) RejectWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.RejectWindow(r.Context(), actorFrom(r), id, req.Version, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// plainTransition handles the transitions whose payload is just the
// observed version.
func (h *OrderHandler) plainTransition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor security.Actor, id uuid.UUID, version int32) (*domain.Order, error)) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req versionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := op(r.Context(), actorFrom(r), id, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	h.plainTransition(w, r, h.orders.ConfirmOrder)
}

func (h *OrderHandler) StartTransit(w http.ResponseWriter, r *http.Request) {
	h.plainTransition(w, r, h.orders.StartTransit)
}

func (h *OrderHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.plainTransition(w, r, h.orders.CompleteOrder)
}

type proofRequest struct {
	Version  int32  `json:"version"`
	ProofRef string `json:"proof_ref"`
}

func (h *OrderHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req proofRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.ConfirmDelivery(r.Context(), actorFrom(r), id, req.Version, req.ProofRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req proofRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.ConfirmPickup(r.Context(), actorFrom(r), id, req.Version, req.ProofRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.Cancel(r.Context(), actorFrom(r), id, req.Version, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type disputeRequest struct {
	Version     int32    `json:"version"`
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	PhotoRefs   []string `json:"photo_refs"`
}

func (h *OrderHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req disputeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.OpenDispute(r.Context(), actorFrom(r), id, req.Version, req.IssueType, req.Description, req.PhotoRefs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type resolveRequest struct {
	Version         int32  `json:"version"`
	ResultingStatus string `json:"resulting_status"`
	Resolution      string `json:"resolution"`
}

func (h *OrderHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.orders.ResolveDispute(r.Context(), actorFrom(r), id, req.Version, domain.OrderStatus(req.ResultingStatus), req.Resolution)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
