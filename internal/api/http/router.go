package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"buildmarket-engine/internal/security"
)

// NewRouter wires the handlers under /api/v1. Every route sits behind
// bearer-token auth; the engine trusts the issuing service for identity and
// only resolves roles per entity.
func NewRouter(orders *OrderHandler, rentals *RentalHandler, events *EventsHandler, tokens security.TokenManager) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tokens))

	o := api.PathPrefix("/orders").Subrouter()
	o.HandleFunc("", orders.Create).Methods(http.MethodPost)
	o.HandleFunc("/{id}", orders.Get).Methods(http.MethodGet)
	o.HandleFunc("/{id}/proposals", orders.ListProposals).Methods(http.MethodGet)
	o.HandleFunc("/{id}/proposals", orders.ProposeWindow).Methods(http.MethodPost)
	o.HandleFunc("/{id}/proposals/accept", orders.AcceptWindow).Methods(http.MethodPost)
	o.HandleFunc("/{id}/proposals/reject", orders.RejectWindow).Methods(http.MethodPost)
	o.HandleFunc("/{id}/proposals/counter", orders.CounterPropose).Methods(http.MethodPost)
	o.HandleFunc("/{id}/confirm", orders.ConfirmOrder).Methods(http.MethodPost)
	o.HandleFunc("/{id}/transit", orders.StartTransit).Methods(http.MethodPost)
	o.HandleFunc("/{id}/delivery", orders.ConfirmDelivery).Methods(http.MethodPost)
	o.HandleFunc("/{id}/pickup", orders.ConfirmPickup).Methods(http.MethodPost)
	o.HandleFunc("/{id}/complete", orders.CompleteOrder).Methods(http.MethodPost)
	o.HandleFunc("/{id}/cancel", orders.Cancel).Methods(http.MethodPost)
	o.HandleFunc("/{id}/disputes", orders.OpenDispute).Methods(http.MethodPost)
	o.HandleFunc("/{id}/disputes/resolve", orders.ResolveDispute).Methods(http.MethodPost)
	o.HandleFunc("/{id}/events", events.Subscribe).Methods(http.MethodGet)

	b := api.PathPrefix("/rentals").Subrouter()
	b.HandleFunc("", rentals.Create).Methods(http.MethodPost)
	b.HandleFunc("/{id}", rentals.Get).Methods(http.MethodGet)
	b.HandleFunc("/{id}/confirm", rentals.ConfirmBooking).Methods(http.MethodPost)
	b.HandleFunc("/{id}/handover", rentals.ConfirmHandover).Methods(http.MethodPost)
	b.HandleFunc("/{id}/return", rentals.ConfirmReturn).Methods(http.MethodPost)
	b.HandleFunc("/{id}/fees", rentals.UpdateFees).Methods(http.MethodPut)
	b.HandleFunc("/{id}/cancel", rentals.Cancel).Methods(http.MethodPost)
	b.HandleFunc("/{id}/disputes", rentals.OpenDispute).Methods(http.MethodPost)
	b.HandleFunc("/{id}/disputes/resolve", rentals.ResolveDispute).Methods(http.MethodPost)
	b.HandleFunc("/{id}/events", events.Subscribe).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}
