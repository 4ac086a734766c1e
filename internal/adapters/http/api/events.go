// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liveboard/liveboard/internal/adapters/repository"
	"github.com/liveboard/liveboard/internal/domain/model"
)

// EventsHandler handles event lifecycle requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// createEventRequest mirrors the JSON schema for POST /events.
type createEventRequest struct {
	Name          string   `json:"name"`
	ScheduledDate string   `json:"scheduledDate"`
	Rounds        []round  `json:"rounds"`
	Teams         []string `json:"teams"`
}

type round struct {
	Name      string  `json:"name"`
	IsBonus   bool    `json:"isBonus"`
	MaxPoints float64 `json:"maxPoints"`
}

func (e createEventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return errors.New("missing name")
	case len(e.Rounds) == 0:
		return errors.New("at least one round required")
	}
	for _, r := range e.Rounds {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("round name must not be empty")
		}
	}
	if e.ScheduledDate != "" {
		if _, err := time.Parse(time.RFC3339, e.ScheduledDate); err != nil {
			return errors.New("invalid scheduledDate; must be RFC3339")
		}
	}
	return nil
}

// HandleEvents handles GET and POST on /events.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	events, err := h.deps.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	in := repository.NewEventInput{
		Name:  req.Name,
		Teams: req.Teams,
	}
	if req.ScheduledDate != "" {
		in.ScheduledDate, _ = time.Parse(time.RFC3339, req.ScheduledDate)
	}
	for _, rd := range req.Rounds {
		in.Rounds = append(in.Rounds, repository.NewRoundInput{
			Name:      rd.Name,
			IsBonus:   rd.IsBonus,
			MaxPoints: rd.MaxPoints,
		})
	}

	ev, err := h.deps.CreateEvent(r.Context(), in)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleEvent handles GET and DELETE on /events/{id}.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.event"
	switch r.Method {
	case http.MethodGet:
		ev, err := h.deps.GetEvent(r.Context(), eventID)
		if err != nil {
			writeStoreError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodDelete:
		if err := h.deps.DeleteEvent(r.Context(), eventID); err != nil {
			writeStoreError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.NotFound(w, r)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleStatus handles PUT /events/{id}/status.
func (h *EventsHandler) HandleStatus(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.set_status"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	ev, err := h.deps.SetStatus(r.Context(), eventID, status)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type roundRequest struct {
	Round int `json:"round"`
}

// HandleRound handles PUT /events/{id}/round.
func (h *EventsHandler) HandleRound(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.set_round"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req roundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Round < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	ev, err := h.deps.AdvanceRound(r.Context(), eventID, req.Round, operatorFrom(r))
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleReset handles POST /events/{id}/reset. All scores are wiped
// and the round pointer rewinds to 1.
func (h *EventsHandler) HandleReset(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.reset_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ev, err := h.deps.ResetEvent(r.Context(), eventID)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
