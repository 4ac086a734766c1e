// Package model contains domain models passed between layers.
package model

import "time"

// Status is the lifecycle state of an event.
type Status string

// Event lifecycle states.
const (
	StatusDraft     Status = "draft"
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusUpcoming, StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Event represents a scored competition with numbered rounds.
// UpdatedAt is bumped on every score mutation and serves as a coarse
// "data changed" watermark for clients.
type Event struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	CurrentRound  int       `json:"currentRound"` // set once the event is active, 1-based
	ScheduledDate time.Time `json:"scheduledDate"`
	StartedAt     time.Time `json:"startedAt,omitzero"`
	EndedAt       time.Time `json:"endedAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Round belongs to exactly one event. RoundNumber is unique per event,
// 1-based and contiguous by convention (not enforced here).
type Round struct {
	ID          string  `json:"id"`
	EventID     string  `json:"eventId"`
	RoundNumber int     `json:"roundNumber"`
	Name        string  `json:"name"`
	IsBonus     bool    `json:"isBonus"`
	MaxPoints   float64 `json:"maxPoints"` // advisory, not enforced at this layer
}

// Team belongs to one event. JoinedRound is the first round the team is
// eligible to have a score for; rounds before it carry no completion
// requirement for the team.
type Team struct {
	ID          string `json:"id"`
	EventID     string `json:"eventId"`
	Name        string `json:"name"`
	JoinedRound int    `json:"joinedRound"`
}

// Score is the recorded points for one (event, team, round) triple.
// At most one score exists per team per round; the store enforces it.
// Points is a non-negative decimal with at most 2 fractional digits,
// validated before it reaches the ranking pipeline.
type Score struct {
	ID          string  `json:"id"`
	EventID     string  `json:"eventId"`
	TeamID      string  `json:"teamId"`
	RoundNumber int     `json:"roundNumber"`
	Points      float64 `json:"points"`
	EnteredBy   string  `json:"enteredBy"`
}

// Operator identifies the admin performing a write. The identity is
// consumed as-is; authentication lives outside this service.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the full read model the ranking pipeline operates on.
// It is produced fresh on every recomputation; the pipeline never
// merges partial fragments.
type Snapshot struct {
	Event  Event
	Rounds []Round
	Teams  []Team
	Scores []Score
}

// Complete reports whether all collections are present. A nil slice
// means the collection was never loaded, as opposed to loaded empty.
func (s *Snapshot) Complete() bool {
	return s.Rounds != nil && s.Teams != nil && s.Scores != nil
}
