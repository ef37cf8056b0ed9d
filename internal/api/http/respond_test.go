package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"buildmarket-engine/internal/domain"
)

func TestWriteError_TaxonomyMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrStaleVersion, http.StatusConflict, "STALE_VERSION"},
		{domain.ErrEntityFrozen, http.StatusLocked, "ENTITY_FROZEN"},
		{domain.ErrInvalidTransition, http.StatusUnprocessableEntity, "INVALID_TRANSITION"},
		{domain.ErrRoleNotPermitted, http.StatusForbidden, "ROLE_NOT_PERMITTED"},
		{domain.ErrIncompleteEvidence, http.StatusBadRequest, "INCOMPLETE_EVIDENCE"},
		{domain.ErrDeadlinePassed, http.StatusGone, "DEADLINE_PASSED"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, fmt.Errorf("op failed: %w", tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body errorResponse
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}
