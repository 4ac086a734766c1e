// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// AuditHandler serves the score mutation trail.
type AuditHandler struct {
	deps Dependencies
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(deps Dependencies) *AuditHandler {
	return &AuditHandler{deps: deps}
}

// HandleGetAudit handles GET /events/{id}/audit requests.
func (h *AuditHandler) HandleGetAudit(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.get_audit"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	entries, err := h.deps.Audit(r.Context(), eventID)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
