package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Error("Failed to encode response", "error", err)
		}
	}
}

// writeError maps the engine error taxonomy onto HTTP statuses. Everything
// except store unavailability is a recoverable caller problem.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrStaleVersion):
		status, code = http.StatusConflict, "STALE_VERSION"
	case errors.Is(err, domain.ErrEntityFrozen):
		status, code = http.StatusLocked, "ENTITY_FROZEN"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = http.StatusUnprocessableEntity, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrRoleNotPermitted):
		status, code = http.StatusForbidden, "ROLE_NOT_PERMITTED"
	case errors.Is(err, domain.ErrIncompleteEvidence):
		status, code = http.StatusBadRequest, "INCOMPLETE_EVIDENCE"
	case errors.Is(err, domain.ErrDeadlinePassed):
		status, code = http.StatusGone, "DEADLINE_PASSED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, code = http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
		logger.Error("Store unavailable", "error", err)
	default:
		status, code = http.StatusInternalServerError, "INTERNAL"
		logger.Error("Unhandled request error", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Code: "BAD_REQUEST"})
		return false
	}
	return true
}
