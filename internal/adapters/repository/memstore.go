package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liveboard/liveboard/internal/domain/model"
)

// MemStore implements Store with in-process maps guarded by a RWMutex.
type MemStore struct {
	mu     sync.RWMutex
	events map[string]model.Event
	rounds map[string][]model.Round // eventID -> rounds
	teams  map[string][]model.Team  // eventID -> teams
	scores map[string]map[scoreKey]model.Score
	audit  map[string][]AuditEntry
	now    func() time.Time
}

type scoreKey struct {
	teamID string
	round  int
}

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithNow overrides the store clock.
func WithNow(now func() time.Time) MemOption {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		events: make(map[string]model.Event),
		rounds: make(map[string][]model.Round),
		teams:  make(map[string][]model.Team),
		scores: make(map[string]map[scoreKey]model.Score),
		audit:  make(map[string][]AuditEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent creates a draft event with contiguous 1-based rounds.
func (s *MemStore) CreateEvent(_ context.Context, in NewEventInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := model.Event{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Status:        model.StatusDraft,
		ScheduledDate: in.ScheduledDate,
		UpdatedAt:     s.now().UTC(),
	}
	s.events[ev.ID] = ev

	rounds := make([]model.Round, 0, len(in.Rounds))
	for i, r := range in.Rounds {
		rounds = append(rounds, model.Round{
			ID:          uuid.NewString(),
			EventID:     ev.ID,
			RoundNumber: i + 1,
			Name:        r.Name,
			IsBonus:     r.IsBonus,
			MaxPoints:   r.MaxPoints,
		})
	}
	s.rounds[ev.ID] = rounds

	teams := make([]model.Team, 0, len(in.Teams))
	for _, name := range in.Teams {
		teams = append(teams, model.Team{
			ID:          uuid.NewString(),
			EventID:     ev.ID,
			Name:        name,
			JoinedRound: 1,
		})
	}
	s.teams[ev.ID] = teams
	s.scores[ev.ID] = make(map[scoreKey]model.Score)

	return ev, nil
}

func (s *MemStore) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	return ev, nil
}

func (s *MemStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemStore) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	delete(s.events, eventID)
	delete(s.rounds, eventID)
	delete(s.teams, eventID)
	delete(s.scores, eventID)
	delete(s.audit, eventID)
	return nil
}

// SetStatus applies the transition and stamps lifecycle timestamps.
// Activating an event positions it at round 1 if no pointer was set.
func (s *MemStore) SetStatus(_ context.Context, eventID string, status model.Status) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	now := s.now().UTC()
	ev.Status = status
	ev.UpdatedAt = now
	switch status {
	case model.StatusActive:
		if ev.StartedAt.IsZero() {
			ev.StartedAt = now
		}
		if ev.CurrentRound < 1 {
			ev.CurrentRound = 1
		}
		ev.EndedAt = time.Time{}
	case model.StatusCompleted:
		ev.EndedAt = now
	}
	s.events[eventID] = ev
	return ev, nil
}

func (s *MemStore) SetCurrentRound(_ context.Context, eventID string, round int) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	if round < 1 || round > len(s.rounds[eventID]) {
		return model.Event{}, fmt.Errorf("round %d: %w", round, ErrRoundNotFound)
	}
	ev.CurrentRound = round
	ev.UpdatedAt = s.now().UTC()
	s.events[eventID] = ev
	return ev, nil
}

// ResetEvent drops every score and rewinds started events to round 1.
// Status and the audit trail are untouched.
func (s *MemStore) ResetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	s.scores[eventID] = make(map[scoreKey]model.Score)
	if ev.CurrentRound > 1 {
		ev.CurrentRound = 1
	}
	ev.UpdatedAt = s.now().UTC()
	s.events[eventID] = ev
	return ev, nil
}

func (s *MemStore) AddTeam(_ context.Context, eventID, name string, joinedRound int) (model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return model.Team{}, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	for _, t := range s.teams[eventID] {
		if t.Name == name {
			return model.Team{}, fmt.Errorf("%s: %w", name, ErrDuplicateTeam)
		}
	}
	if joinedRound < 1 {
		joinedRound = 1
	}
	team := model.Team{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Name:        name,
		JoinedRound: joinedRound,
	}
	s.teams[eventID] = append(s.teams[eventID], team)
	s.touchLocked(eventID)
	return team, nil
}

func (s *MemStore) RemoveTeam(_ context.Context, eventID, teamID string) (model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	teams := s.teams[eventID]
	for i, t := range teams {
		if t.ID != teamID {
			continue
		}
		s.teams[eventID] = append(teams[:i:i], teams[i+1:]...)
		for key := range s.scores[eventID] {
			if key.teamID == teamID {
				delete(s.scores[eventID], key)
			}
		}
		s.touchLocked(eventID)
		return t, nil
	}
	return model.Team{}, fmt.Errorf("%s: %w", teamID, ErrTeamNotFound)
}

// UpsertScore is the last-write-wins arbiter for competing editors:
// whichever write lands later replaces the earlier one, and the old
// value is returned so the broadcast can carry it.
func (s *MemStore) UpsertScore(_ context.Context, eventID, teamID string, round int, points float64, enteredBy string) (model.Score, *float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return model.Score{}, nil, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	if !s.hasTeamLocked(eventID, teamID) {
		return model.Score{}, nil, fmt.Errorf("%s: %w", teamID, ErrTeamNotFound)
	}
	if !s.hasRoundLocked(eventID, round) {
		return model.Score{}, nil, fmt.Errorf("round %d: %w", round, ErrRoundNotFound)
	}

	key := scoreKey{teamID: teamID, round: round}
	var oldPoints *float64
	action := AuditCreated
	score := model.Score{
		ID:          uuid.NewString(),
		EventID:     eventID,
		TeamID:      teamID,
		RoundNumber: round,
		Points:      points,
		EnteredBy:   enteredBy,
	}
	if existing, ok := s.scores[eventID][key]; ok {
		old := existing.Points
		oldPoints = &old
		action = AuditUpdated
		score.ID = existing.ID
	}
	s.scores[eventID][key] = score
	s.auditLocked(eventID, teamID, round, oldPoints, points, action, enteredBy)
	s.touchLocked(eventID)
	return score, oldPoints, nil
}

func (s *MemStore) DeleteScore(_ context.Context, eventID, teamID string, round int, deletedBy string) (model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scoreKey{teamID: teamID, round: round}
	existing, ok := s.scores[eventID][key]
	if !ok {
		return model.Score{}, fmt.Errorf("team %s round %d: %w", teamID, round, ErrScoreNotFound)
	}
	delete(s.scores[eventID], key)
	old := existing.Points
	s.auditLocked(eventID, teamID, round, &old, 0, AuditDeleted, deletedBy)
	s.touchLocked(eventID)
	return existing, nil
}

// Snapshot copies out the full read model. Collections are always
// non-nil so a snapshot from a known event is never "incomplete".
func (s *MemStore) Snapshot(_ context.Context, eventID string) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	snap := model.Snapshot{
		Event:  ev,
		Rounds: append([]model.Round{}, s.rounds[eventID]...),
		Teams:  append([]model.Team{}, s.teams[eventID]...),
		Scores: make([]model.Score, 0, len(s.scores[eventID])),
	}
	for _, sc := range s.scores[eventID] {
		snap.Scores = append(snap.Scores, sc)
	}
	sort.Slice(snap.Scores, func(i, j int) bool {
		if snap.Scores[i].RoundNumber != snap.Scores[j].RoundNumber {
			return snap.Scores[i].RoundNumber < snap.Scores[j].RoundNumber
		}
		return snap.Scores[i].TeamID < snap.Scores[j].TeamID
	})
	return snap, nil
}

func (s *MemStore) Audit(_ context.Context, eventID string) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	entries := append([]AuditEntry{}, s.audit[eventID]...)
	// Stable so entries written in the same clock tick keep insertion
	// order when reversed to newest-first.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.After(entries[j].At) })
	return entries, nil
}

func (s *MemStore) Counts(_ context.Context) (events, teams, scores int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events = len(s.events)
	for _, ts := range s.teams {
		teams += len(ts)
	}
	for _, sc := range s.scores {
		scores += len(sc)
	}
	return events, teams, scores
}

func (s *MemStore) hasTeamLocked(eventID, teamID string) bool {
	for _, t := range s.teams[eventID] {
		if t.ID == teamID {
			return true
		}
	}
	return false
}

func (s *MemStore) hasRoundLocked(eventID string, round int) bool {
	for _, r := range s.rounds[eventID] {
		if r.RoundNumber == round {
			return true
		}
	}
	return false
}

// touchLocked bumps the event's UpdatedAt watermark.
func (s *MemStore) touchLocked(eventID string) {
	ev := s.events[eventID]
	ev.UpdatedAt = s.now().UTC()
	s.events[eventID] = ev
}

func (s *MemStore) auditLocked(eventID, teamID string, round int, oldPoints *float64, newPoints float64, action AuditAction, changedBy string) {
	s.audit[eventID] = append(s.audit[eventID], AuditEntry{
		ID:          uuid.NewString(),
		EventID:     eventID,
		TeamID:      teamID,
		RoundNumber: round,
		OldPoints:   oldPoints,
		NewPoints:   newPoints,
		Action:      action,
		ChangedBy:   changedBy,
		At:          s.now().UTC(),
	})
}
