// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// ScoresHandler handles score writes and deletions.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

type saveScoreRequest struct {
	TeamID      string  `json:"teamId"`
	RoundNumber int     `json:"roundNumber"`
	Points      float64 `json:"points"`
}

func (s saveScoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.TeamID) == "":
		return NewKind("api.save_score", ErrBadRequest)
	case s.RoundNumber < 1:
		return NewKind("api.save_score", ErrBadRequest)
	}
	return nil
}

// HandleScores handles PUT and DELETE on /events/{id}/scores.
func (h *ScoresHandler) HandleScores(w http.ResponseWriter, r *http.Request, eventID string) {
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		h.handleSave(w, r, eventID)
	case http.MethodDelete:
		h.handleDelete(w, r, eventID)
	default:
		http.NotFound(w, r)
	}
}

func (h *ScoresHandler) handleSave(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.save_score"
	var req saveScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	score, err := h.deps.SaveScore(r.Context(), eventID, req.TeamID, req.RoundNumber, req.Points, operatorFrom(r))
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// handleDelete reads team and round from query parameters:
// DELETE /events/{id}/scores?teamId=X&round=N
func (h *ScoresHandler) handleDelete(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.delete_score"
	teamID := r.URL.Query().Get("teamId")
	round, err := strconv.Atoi(r.URL.Query().Get("round"))
	if teamID == "" || err != nil || round < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.DeleteScore(r.Context(), eventID, teamID, round, operatorFrom(r)); err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
