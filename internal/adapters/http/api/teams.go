// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// TeamsHandler handles roster changes.
type TeamsHandler struct {
	deps Dependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Dependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

type addTeamRequest struct {
	Name        string `json:"name"`
	JoinedRound int    `json:"joinedRound"`
}

// HandleAddTeam handles POST /events/{id}/teams.
func (h *TeamsHandler) HandleAddTeam(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.add_team"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req addTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if req.JoinedRound < 1 {
		req.JoinedRound = 1
	}
	team, err := h.deps.AddTeam(r.Context(), eventID, req.Name, req.JoinedRound)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// HandleRemoveTeam handles DELETE /events/{id}/teams/{teamID}.
func (h *TeamsHandler) HandleRemoveTeam(w http.ResponseWriter, r *http.Request, eventID, teamID string) {
	const op = "api.remove_team"
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.RemoveTeam(r.Context(), eventID, teamID); err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
