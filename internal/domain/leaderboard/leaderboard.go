// Package leaderboard assembles the full annotated leaderboard from a
// snapshot: completion tracking, rankings, movement tags, highlights
// and per-round summaries.
//
// Build is synchronous and side-effect-free. It runs once per
// refreshed snapshot and holds no state across calls.
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/liveboard/liveboard/internal/domain/completion"
	"github.com/liveboard/liveboard/internal/domain/highlights"
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/internal/domain/movement"
	"github.com/liveboard/liveboard/internal/domain/ranking"
)

// RoundStatus describes a round's place in the event timeline.
type RoundStatus string

// Round statuses for the rounds summary.
const (
	RoundCompleted RoundStatus = "completed"
	RoundCurrent   RoundStatus = "current"
	RoundUpcoming  RoundStatus = "upcoming"
)

// Row is one leaderboard line: a ranking annotated with its movement.
type Row struct {
	ranking.TeamRanking
	Movement movement.Direction `json:"movement"`
}

// RoundSummary is the per-round digest shown alongside the table.
type RoundSummary struct {
	RoundNumber int         `json:"roundNumber"`
	Name        string      `json:"name,omitempty"`
	IsBonus     bool        `json:"isBonus"`
	MaxPoints   float64     `json:"maxPoints,omitempty"`
	Status      RoundStatus `json:"status"`
	TopTeamName string      `json:"topTeamName,omitempty"`
	TopScore    *float64    `json:"topScore"`
}

// Leaderboard is the full derived read model. It is never persisted.
type Leaderboard struct {
	Event              model.Event           `json:"event"`
	Rows               []Row                 `json:"rankings"`
	CurrentRound       int                   `json:"currentRound"`
	TotalRounds        int                   `json:"totalRounds"`
	LastCompletedRound *int                  `json:"lastCompletedRound"`
	LastUpdated        time.Time             `json:"lastUpdated"`
	Highlights         highlights.Highlights `json:"highlights"`
	RoundsSummary      []RoundSummary        `json:"roundsSummary"`
}

// Build runs the whole pipeline over one snapshot.
func Build(snap model.Snapshot) (*Leaderboard, error) {
	if !snap.Complete() {
		return nil, fmt.Errorf("event %s: %w", snap.Event.ID, ErrIncompleteData)
	}

	tracker := completion.NewTracker(snap.Rounds, snap.Teams, snap.Scores)
	lastCompleted, hasCompleted := tracker.LastCompleted(snap.Event.Status, snap.Event.CurrentRound)

	rankings := ranking.Compute(snap.Rounds, snap.Teams, snap.Scores, lastCompleted, hasCompleted)
	moves := movement.Classify(snap.Event.Status, lastCompleted, hasCompleted, snap.Teams, snap.Scores, rankings)

	rows := make([]Row, len(rankings))
	for i, r := range rankings {
		rows[i] = Row{TeamRanking: r, Movement: moves[r.Team.ID]}
	}

	lb := &Leaderboard{
		Event:         snap.Event,
		Rows:          rows,
		CurrentRound:  snap.Event.CurrentRound,
		TotalRounds:   len(snap.Rounds),
		LastUpdated:   snap.Event.UpdatedAt,
		Highlights:    highlights.Compute(rankings, snap.Teams, snap.Scores, lastCompleted, hasCompleted),
		RoundsSummary: roundsSummary(snap, tracker),
	}
	if hasCompleted {
		lc := lastCompleted
		lb.LastCompletedRound = &lc
	}
	return lb, nil
}

func roundsSummary(snap model.Snapshot, tracker *completion.Tracker) []RoundSummary {
	teamsByID := make(map[string]model.Team, len(snap.Teams))
	for _, t := range snap.Teams {
		teamsByID[t.ID] = t
	}

	rounds := make([]model.Round, len(snap.Rounds))
	copy(rounds, snap.Rounds)
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].RoundNumber < rounds[j].RoundNumber })

	out := make([]RoundSummary, 0, len(rounds))
	for _, round := range rounds {
		summary := RoundSummary{
			RoundNumber: round.RoundNumber,
			Name:        round.Name,
			IsBonus:     round.IsBonus,
			MaxPoints:   round.MaxPoints,
			Status:      roundStatus(snap.Event, round.RoundNumber, tracker),
		}
		if top, ok := topScore(snap.Scores, round.RoundNumber); ok {
			points := top.Points
			summary.TopScore = &points
			summary.TopTeamName = teamsByID[top.TeamID].Name
		}
		out = append(out, summary)
	}
	return out
}

func roundStatus(event model.Event, round int, tracker *completion.Tracker) RoundStatus {
	if event.Status == model.StatusCompleted || event.Status == model.StatusArchived {
		if tracker.IsCompleted(round) {
			return RoundCompleted
		}
		return RoundUpcoming
	}
	if event.CurrentRound == round && event.Status == model.StatusActive {
		return RoundCurrent
	}
	if (event.CurrentRound > round && event.Status == model.StatusActive) || tracker.IsCompleted(round) {
		return RoundCompleted
	}
	return RoundUpcoming
}

func topScore(scores []model.Score, round int) (model.Score, bool) {
	var best model.Score
	found := false
	for _, s := range scores {
		if s.RoundNumber != round {
			continue
		}
		if !found || s.Points > best.Points {
			best = s
			found = true
		}
	}
	return best, found
}
