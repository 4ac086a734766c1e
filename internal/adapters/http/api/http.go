// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liveboard/liveboard/internal/adapters/repository"
	"github.com/liveboard/liveboard/internal/app"
	"github.com/liveboard/liveboard/internal/domain/leaderboard"
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateEvent(ctx context.Context, in repository.NewEventInput) (model.Event, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	SetStatus(ctx context.Context, eventID string, status model.Status) (model.Event, error)
	AdvanceRound(ctx context.Context, eventID string, newRound int, op model.Operator) (model.Event, error)
	ResetEvent(ctx context.Context, eventID string) (model.Event, error)

	AddTeam(ctx context.Context, eventID, name string, joinedRound int) (model.Team, error)
	RemoveTeam(ctx context.Context, eventID, teamID string) error

	SaveScore(ctx context.Context, eventID, teamID string, round int, points float64, op model.Operator) (model.Score, error)
	DeleteScore(ctx context.Context, eventID, teamID string, round int, op model.Operator) error

	Leaderboard(ctx context.Context, eventID string) (*leaderboard.Leaderboard, error)
	Snapshot(ctx context.Context, eventID string) (model.Snapshot, error)
	Audit(ctx context.Context, eventID string) ([]repository.AuditEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	teamsHandler       *TeamsHandler
	scoresHandler      *ScoresHandler
	leaderboardHandler *LeaderboardHandler
	exportHandler      *ExportHandler
	auditHandler       *AuditHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		teamsHandler:       NewTeamsHandler(deps),
		scoresHandler:      NewScoresHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		exportHandler:      NewExportHandler(deps),
		auditHandler:       NewAuditHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleEvents, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.routeEvent, "event"))
}

// routeEvent dispatches /events/{id}[/resource[/...]] paths to the
// matching handler. ServeMux patterns stay flat; the segment walk
// lives here.
func (s *Server) routeEvent(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/events/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	eventID := parts[0]

	switch {
	case len(parts) == 1:
		s.eventsHandler.HandleEvent(w, r, eventID)
	case len(parts) == 2 && parts[1] == "status":
		s.eventsHandler.HandleStatus(w, r, eventID)
	case len(parts) == 2 && parts[1] == "round":
		s.eventsHandler.HandleRound(w, r, eventID)
	case len(parts) == 2 && parts[1] == "reset":
		s.eventsHandler.HandleReset(w, r, eventID)
	case len(parts) == 2 && parts[1] == "teams":
		s.teamsHandler.HandleAddTeam(w, r, eventID)
	case len(parts) == 3 && parts[1] == "teams":
		s.teamsHandler.HandleRemoveTeam(w, r, eventID, parts[2])
	case len(parts) == 2 && parts[1] == "scores":
		s.scoresHandler.HandleScores(w, r, eventID)
	case len(parts) == 2 && parts[1] == "leaderboard":
		s.leaderboardHandler.HandleGetLeaderboard(w, r, eventID)
	case len(parts) == 2 && parts[1] == "export":
		s.exportHandler.HandleExportCSV(w, r, eventID)
	case len(parts) == 2 && parts[1] == "audit":
		s.auditHandler.HandleGetAudit(w, r, eventID)
	default:
		http.NotFound(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError translates repository and service errors into the
// right status code.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, repository.ErrDuplicateTeam):
		writeError(w, http.StatusConflict, "duplicate_team", WrapKind(op, ErrConflict, err))
	case errors.Is(err, app.ErrInvalidScore), errors.Is(err, app.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrEventNotFound) ||
		errors.Is(err, repository.ErrTeamNotFound) ||
		errors.Is(err, repository.ErrRoundNotFound) ||
		errors.Is(err, repository.ErrScoreNotFound)
}

// operatorFrom reads the operator identity headers. Missing IDs fall
// back to "anonymous" so the audit trail is never empty.
func operatorFrom(r *http.Request) model.Operator {
	op := model.Operator{
		ID:   strings.TrimSpace(r.Header.Get("X-Operator-Id")),
		Name: strings.TrimSpace(r.Header.Get("X-Operator-Name")),
	}
	if op.ID == "" {
		op.ID = "anonymous"
	}
	return op
}
