package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"buildmarket-engine/internal/events"
	"buildmarket-engine/internal/logger"
)

// EventsHandler streams entity change events over server-sent events. One
// stream per entity id: clients open it from a detail view and treat each
// event as an invalidation hint to re-fetch the entity.
type EventsHandler struct {
	bus events.Bus
}

func NewEventsHandler(bus events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported", Code: "INTERNAL"})
		return
	}

	ch, cancel := h.bus.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Error("Failed to encode entity event", "error", err, "entity_id", id)
				continue
			}
			fmt.Fprintf(w, "event: entity-update\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
