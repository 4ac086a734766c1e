// Package app provides the core business service that implements the
// dependencies required by the HTTP and websocket adapters.
package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/liveboard/liveboard/internal/adapters/repository"
	"github.com/liveboard/liveboard/internal/broadcast"
	"github.com/liveboard/liveboard/internal/domain/leaderboard"
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/pkg/logger"
	"github.com/liveboard/liveboard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMaxPoints = 1000
)

// Service owns the store and the broadcast bus. Score writes commit
// first and broadcast second: a failed publish is logged and
// swallowed, never surfaced to the writer, because the durable state
// is already correct and only liveness suffers.
type Service struct {
	mu sync.RWMutex

	store repository.Store
	bus   *broadcast.Bus

	maxPoints     float64
	busBufferSize int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore replaces the record store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBus replaces the broadcast bus.
func WithBus(bus *broadcast.Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithMaxPoints caps a single round score.
func WithMaxPoints(max float64) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxPoints = max
		}
	}
}

// WithBusBufferSize sets the per-subscriber broadcast buffer.
func WithBusBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.busBufferSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxPoints:     defaultMaxPoints,
		busBufferSize: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	if s.bus == nil {
		s.bus = broadcast.NewBus(broadcast.WithBufferSize(s.busBufferSize))
	}
	s.started = true
	s.logger.Info(ctx, "liveboard service started",
		logger.Float64("maxPoints", s.maxPoints),
		logger.Int("busBufferSize", s.busBufferSize),
	)
	return nil
}

// Stop shuts the service down, closing all live subscriptions.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	_ = s.bus.Close()
	s.started = false
	s.logger.Info(context.Background(), "liveboard service stopped")
}

// Bus exposes the broadcast bus for subscription by adapters and
// conflict coordinators.
func (s *Service) Bus() *broadcast.Bus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bus
}

// Subscribe opens a subscription on one logical channel.
func (s *Service) Subscribe(ctx context.Context, channel string) (<-chan broadcast.Message, func()) {
	return s.Bus().Subscribe(ctx, channel)
}

// CreateEvent creates a draft event and announces it on the global
// channel.
func (s *Service) CreateEvent(ctx context.Context, in repository.NewEventInput) (model.Event, error) {
	ev, err := s.store.CreateEvent(ctx, in)
	if err != nil {
		return model.Event{}, err
	}
	s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventCreated, broadcast.LifecycleNotice{EventID: ev.ID, EventName: ev.Name})
	return ev, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

// ListEvents returns all events, most recently updated first.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// DeleteEvent removes an event and announces the removal globally.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventDeleted, broadcast.LifecycleNotice{EventID: ev.ID, EventName: ev.Name})
	return nil
}

// SetStatus transitions the event lifecycle, announcing the change on
// the event channel and the matching notice on the global channel.
func (s *Service) SetStatus(ctx context.Context, eventID string, status model.Status) (model.Event, error) {
	if !status.Valid() {
		return model.Event{}, fmt.Errorf("%s: %w", status, ErrInvalidStatus)
	}
	prev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	ev, err := s.store.SetStatus(ctx, eventID, status)
	if err != nil {
		return model.Event{}, err
	}

	s.publish(ctx, broadcast.EventChannel(eventID), broadcast.TypeEventStatusChanged, broadcast.EventStatusChanged{Status: string(status)})
	notice := broadcast.LifecycleNotice{EventID: ev.ID, EventName: ev.Name}
	switch status {
	case model.StatusActive:
		// Going back to active from completed is a reopen, not a start.
		if prev.Status == model.StatusCompleted {
			s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventReopened, notice)
		} else {
			s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventStarted, notice)
		}
	case model.StatusCompleted:
		s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventEnded, notice)
	case model.StatusArchived:
		s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventArchived, notice)
	}
	return ev, nil
}

// ResetEvent clears every score from the event and rewinds the round
// pointer, announcing the reset on the global channel.
func (s *Service) ResetEvent(ctx context.Context, eventID string) (model.Event, error) {
	ev, err := s.store.ResetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	s.logger.Info(ctx, "event reset", logger.String("eventId", eventID))
	s.publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventReset, broadcast.LifecycleNotice{EventID: ev.ID, EventName: ev.Name})
	return ev, nil
}

// AdvanceRound moves the current round pointer and broadcasts it.
func (s *Service) AdvanceRound(ctx context.Context, eventID string, newRound int, op model.Operator) (model.Event, error) {
	ev, err := s.store.SetCurrentRound(ctx, eventID, newRound)
	if err != nil {
		return model.Event{}, err
	}
	snap, err := s.store.Snapshot(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	s.publish(ctx, broadcast.EventChannel(eventID), broadcast.TypeRoundChanged, broadcast.RoundChanged{
		NewRound:      newRound,
		TotalRounds:   len(snap.Rounds),
		ChangedBy:     op.ID,
		ChangedByName: op.Name,
	})
	return ev, nil
}

// AddTeam registers a mid-event join and broadcasts it.
func (s *Service) AddTeam(ctx context.Context, eventID, name string, joinedRound int) (model.Team, error) {
	team, err := s.store.AddTeam(ctx, eventID, name, joinedRound)
	if err != nil {
		return model.Team{}, err
	}
	s.publish(ctx, broadcast.EventChannel(eventID), broadcast.TypeTeamAdded, broadcast.TeamAdded{
		TeamID:      team.ID,
		TeamName:    team.Name,
		JoinedRound: team.JoinedRound,
	})
	return team, nil
}

// RemoveTeam drops a team and broadcasts it.
func (s *Service) RemoveTeam(ctx context.Context, eventID, teamID string) error {
	team, err := s.store.RemoveTeam(ctx, eventID, teamID)
	if err != nil {
		return err
	}
	s.publish(ctx, broadcast.EventChannel(eventID), broadcast.TypeTeamRemoved, broadcast.TeamRemoved{
		TeamID:   team.ID,
		TeamName: team.Name,
	})
	return nil
}

// SaveScore validates and commits one score, then broadcasts the
// change with the old value so peers can render the transition. The
// engine downstream assumes well-formed input; malformed values stop
// here.
func (s *Service) SaveScore(ctx context.Context, eventID, teamID string, round int, points float64, op model.Operator) (model.Score, error) {
	if err := s.validatePoints(points); err != nil {
		return model.Score{}, err
	}
	score, oldPoints, err := s.store.UpsertScore(ctx, eventID, teamID, round, points, op.ID)
	if err != nil {
		return model.Score{}, err
	}
	metrics.RecordScoreWrite()

	teamName := s.teamName(ctx, eventID, teamID)
	s.publish(ctx, broadcast.EventChannel(eventID), broadcast.TypeScoreUpdated, broadcast.ScoreUpdated{
		TeamID:        teamID,
		TeamName:      teamName,
		RoundNumber:   round,
		Points:        points,
		OldPoints:     oldPoints,
		ChangedBy:     op.ID,
		ChangedByName: op.Name,
	})
	return score, nil
}

// DeleteScore removes one score and broadcasts the deletion.
func (s *Service) DeleteScore(ctx context.Context, eventID, teamID string, round int, op model.Operator) error {
	_, err := s.store.DeleteScore(ctx, eventID, teamID, round, op.ID)
	if err != nil {
		return err
	}
	metrics.RecordScoreDelete()

	s.publish(ctx, broadcast.EventChannel(eventID), broadcast.TypeScoreDeleted, broadcast.ScoreDeleted{
		TeamID:        teamID,
		TeamName:      s.teamName(ctx, eventID, teamID),
		RoundNumber:   round,
		ChangedBy:     op.ID,
		ChangedByName: op.Name,
	})
	return nil
}

// Leaderboard runs the ranking pipeline over a fresh snapshot.
func (s *Service) Leaderboard(ctx context.Context, eventID string) (*leaderboard.Leaderboard, error) {
	snap, err := s.store.Snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	lb, err := leaderboard.Build(snap)
	if err != nil {
		metrics.RecordLeaderboardBuildFailure()
		return nil, err
	}
	metrics.RecordLeaderboardBuild(float64(time.Since(start).Milliseconds()))
	return lb, nil
}

// Snapshot exposes the raw read model.
func (s *Service) Snapshot(ctx context.Context, eventID string) (model.Snapshot, error) {
	return s.store.Snapshot(ctx, eventID)
}

// Audit returns the score mutation trail for one event.
func (s *Service) Audit(ctx context.Context, eventID string) ([]repository.AuditEntry, error) {
	return s.store.Audit(ctx, eventID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	bus := s.bus
	s.mu.RUnlock()

	stats := map[string]any{
		"started": started,
	}
	if !started {
		return stats
	}
	events, teams, scores := s.store.Counts(context.Background())
	stats["events"] = events
	stats["teams"] = teams
	stats["scores"] = scores
	stats["subscribers"] = bus.SubscriberCount()

	metrics.UpdateEventsTotal(events)
	metrics.UpdateTeamsTotal(teams)
	metrics.UpdateScoresTotal(scores)
	return stats
}

// validatePoints rejects malformed values before they reach the
// engine: negative, above the cap, or more than 2 decimal places.
func (s *Service) validatePoints(points float64) error {
	if math.IsNaN(points) || math.IsInf(points, 0) {
		return fmt.Errorf("%w: not a number", ErrInvalidScore)
	}
	if points < 0 {
		return fmt.Errorf("%w: must not be negative", ErrInvalidScore)
	}
	if points > s.maxPoints {
		return fmt.Errorf("%w: exceeds %v points", ErrInvalidScore, s.maxPoints)
	}
	cents := points * 100
	if math.Abs(cents-math.Round(cents)) > 1e-9 {
		return fmt.Errorf("%w: more than 2 decimal places", ErrInvalidScore)
	}
	return nil
}

// publish delivers best-effort. Broadcast failure is non-fatal: the
// write already committed, so it is logged and swallowed.
func (s *Service) publish(ctx context.Context, channel string, t broadcast.Type, payload any) {
	if err := s.bus.Publish(ctx, channel, t, payload); err != nil {
		metrics.RecordBroadcastFailure()
		s.logger.Warn(ctx, "broadcast publish failed",
			logger.String("channel", channel),
			logger.String("type", string(t)),
			logger.Error(err),
		)
	}
}

func (s *Service) teamName(ctx context.Context, eventID, teamID string) string {
	snap, err := s.store.Snapshot(ctx, eventID)
	if err != nil {
		return ""
	}
	for _, t := range snap.Teams {
		if t.ID == teamID {
			return t.Name
		}
	}
	return ""
}
